package usecase

import (
	"context"
	"errors"
	"sync"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"
	"flightops-service/pkg/logger"
)

// CatalogCache keeps the airline, destination and gate reference catalogs in
// memory so command validation does not hit the reference database on every
// command. Refresh is driven by a cron entry in the server.
type CatalogCache struct {
	airlines     repository.AirlineRepository
	destinations repository.DestinationRepository
	gates        repository.GateRepository
	logger       logger.Logger

	mu               sync.RWMutex
	airlineCodes     map[string]struct{}
	destinationCodes map[string]struct{}
	gateCodes        map[string]struct{}
}

// NewCatalogCache creates an empty cache over the three catalog repositories
func NewCatalogCache(
	airlines repository.AirlineRepository,
	destinations repository.DestinationRepository,
	gates repository.GateRepository,
	logger logger.Logger,
) *CatalogCache {
	return &CatalogCache{
		airlines:         airlines,
		destinations:     destinations,
		gates:            gates,
		logger:           logger,
		airlineCodes:     make(map[string]struct{}),
		destinationCodes: make(map[string]struct{}),
		gateCodes:        make(map[string]struct{}),
	}
}

// Refresh reloads all three catalogs; on error the previous snapshot stays
func (c *CatalogCache) Refresh(ctx context.Context) error {
	airlines, err := c.airlines.ListAll(ctx)
	if err != nil {
		return err
	}
	destinations, err := c.destinations.ListAll(ctx)
	if err != nil {
		return err
	}
	gates, err := c.gates.ListAll(ctx)
	if err != nil {
		return err
	}

	airlineCodes := make(map[string]struct{}, len(airlines))
	for _, a := range airlines {
		airlineCodes[a.Code] = struct{}{}
	}
	destinationCodes := make(map[string]struct{}, len(destinations))
	for _, d := range destinations {
		destinationCodes[d.AirportCode] = struct{}{}
	}
	gateCodes := make(map[string]struct{}, len(gates))
	for _, g := range gates {
		gateCodes[g.Code] = struct{}{}
	}

	c.mu.Lock()
	c.airlineCodes = airlineCodes
	c.destinationCodes = destinationCodes
	c.gateCodes = gateCodes
	c.mu.Unlock()

	c.logger.Info("Reference catalogs refreshed",
		"airlines", len(airlineCodes),
		"destinations", len(destinationCodes),
		"gates", len(gateCodes))
	return nil
}

// HasAirline reports whether the airline code exists; cache misses fall
// through to the repository since catalogs can grow between refreshes. A
// failed lookup is an error, not a missing code.
func (c *CatalogCache) HasAirline(ctx context.Context, code string) (bool, error) {
	c.mu.RLock()
	_, ok := c.airlineCodes[code]
	c.mu.RUnlock()
	if ok {
		return true, nil
	}

	if _, err := c.airlines.GetByCode(ctx, code); err != nil {
		if errors.Is(err, entity.ErrUnknownAirline) {
			return false, nil
		}
		c.logger.Error("Airline lookup failed", "code", code, "error", err)
		return false, err
	}
	c.mu.Lock()
	c.airlineCodes[code] = struct{}{}
	c.mu.Unlock()
	return true, nil
}

// HasDestination reports whether the airport code exists
func (c *CatalogCache) HasDestination(ctx context.Context, code string) (bool, error) {
	c.mu.RLock()
	_, ok := c.destinationCodes[code]
	c.mu.RUnlock()
	if ok {
		return true, nil
	}

	if _, err := c.destinations.GetByAirportCode(ctx, code); err != nil {
		if errors.Is(err, entity.ErrUnknownDestination) {
			return false, nil
		}
		c.logger.Error("Destination lookup failed", "code", code, "error", err)
		return false, err
	}
	c.mu.Lock()
	c.destinationCodes[code] = struct{}{}
	c.mu.Unlock()
	return true, nil
}

// HasGate reports whether the gate code exists
func (c *CatalogCache) HasGate(ctx context.Context, code string) (bool, error) {
	c.mu.RLock()
	_, ok := c.gateCodes[code]
	c.mu.RUnlock()
	if ok {
		return true, nil
	}

	if _, err := c.gates.GetByCode(ctx, code); err != nil {
		if errors.Is(err, entity.ErrUnknownGate) {
			return false, nil
		}
		c.logger.Error("Gate lookup failed", "code", code, "error", err)
		return false, err
	}
	c.mu.Lock()
	c.gateCodes[code] = struct{}{}
	c.mu.Unlock()
	return true, nil
}
