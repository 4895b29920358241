package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/usecase"
	"flightops-service/pkg/logger"
	"flightops-service/pkg/metrics"
)

// Dispatcher routes a command to its entity's worker
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd usecase.Command) error
}

// CommandServer is the thin HTTP intake standing in for the external
// request layer: it decodes commands, dispatches them, and maps the error
// taxonomy onto status codes. It holds no domain logic.
type CommandServer struct {
	dispatcher Dispatcher
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewCommandServer creates a new command intake server
func NewCommandServer(dispatcher Dispatcher, logger logger.Logger, m *metrics.Metrics) *CommandServer {
	return &CommandServer{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
	}
}

// RegisterRoutes mounts the command endpoints on the mux
func (s *CommandServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/schedules", s.handleCreateSchedule)
	mux.HandleFunc("PUT /api/v1/schedules/{id}", s.handleEditSchedule)
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", s.handleDeleteSchedule)
	mux.HandleFunc("POST /api/v1/flights", s.handleCreateFlight)
	mux.HandleFunc("PUT /api/v1/flights/{id}/status", s.handleSetStatus)
	mux.HandleFunc("PUT /api/v1/flights/{id}/gate", s.handleAssignGate)
}

type createScheduleRequest struct {
	AirlineID     string            `json:"airlineId"`
	FlightNumber  string            `json:"flightNumber"`
	DestinationID string            `json:"destinationId"`
	Recurrence    entity.Recurrence `json:"recurrence"`
}

func (s *CommandServer) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cmd := usecase.CreateScheduleCommand{
		ScheduleID:    uuid.NewString(),
		AirlineID:     req.AirlineID,
		FlightNumber:  req.FlightNumber,
		DestinationID: req.DestinationID,
		Recurrence:    req.Recurrence,
	}
	if err := s.dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"scheduleId": cmd.ScheduleID})
}

type editScheduleRequest struct {
	Recurrence entity.Recurrence `json:"recurrence"`
}

func (s *CommandServer) handleEditSchedule(w http.ResponseWriter, r *http.Request) {
	var req editScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cmd := usecase.EditScheduleCommand{
		ScheduleID: r.PathValue("id"),
		Recurrence: req.Recurrence,
	}
	if err := s.dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"scheduleId": cmd.ScheduleID})
}

func (s *CommandServer) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	cmd := usecase.DeleteScheduleCommand{ScheduleID: r.PathValue("id")}
	if err := s.dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createFlightRequest struct {
	AirlineID          string    `json:"airlineId"`
	FlightNumber       string    `json:"flightNumber"`
	DestinationID      string    `json:"destinationId"`
	ScheduledDeparture time.Time `json:"scheduledDepartureUtc"`
}

func (s *CommandServer) handleCreateFlight(w http.ResponseWriter, r *http.Request) {
	var req createFlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cmd := usecase.CreateFlightCommand{
		FlightID:           uuid.NewString(),
		AirlineID:          req.AirlineID,
		FlightNumber:       req.FlightNumber,
		DestinationID:      req.DestinationID,
		ScheduledDeparture: req.ScheduledDeparture,
	}
	if err := s.dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"flightId": cmd.FlightID})
}

type setStatusRequest struct {
	Status             entity.FlightStatus `json:"status"`
	EstimatedDeparture *time.Time          `json:"estimatedDepartureUtc,omitempty"`
}

func (s *CommandServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cmd := usecase.EditFlightCommand{
		FlightID:           r.PathValue("id"),
		Status:             req.Status,
		EstimatedDeparture: req.EstimatedDeparture,
	}
	if err := s.dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"flightId": cmd.FlightID, "status": string(req.Status)})
}

type assignGateRequest struct {
	GateID string `json:"gateId"`
}

func (s *CommandServer) handleAssignGate(w http.ResponseWriter, r *http.Request) {
	var req assignGateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cmd := usecase.AssignGateCommand{
		FlightID: r.PathValue("id"),
		GateID:   req.GateID,
	}
	if err := s.dispatch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"flightId": cmd.FlightID, "gateId": req.GateID})
}

func (s *CommandServer) dispatch(ctx context.Context, cmd usecase.Command) error {
	start := time.Now()
	err := s.dispatcher.Dispatch(ctx, cmd)
	s.metrics.CommandDuration.Observe(time.Since(start).Seconds())
	return err
}

func (s *CommandServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error taxonomy onto HTTP status codes
func (s *CommandServer) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, entity.ErrInvalidRecurrence),
		errors.Is(err, entity.ErrIllegalTransition),
		errors.Is(err, entity.ErrInvalidDeparture),
		errors.Is(err, entity.ErrUnknownAirline),
		errors.Is(err, entity.ErrUnknownDestination),
		errors.Is(err, entity.ErrUnknownGate):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrScheduleNotFound),
		errors.Is(err, entity.ErrFlightNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrScheduleLocked),
		errors.Is(err, entity.ErrScheduleHasActiveFlight),
		errors.Is(err, entity.ErrTerminalState),
		errors.Is(err, entity.ErrNotBoarding):
		status = http.StatusConflict
	default:
		s.logger.Error("Command failed", "error", err)
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
