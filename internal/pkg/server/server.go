package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/coordinator"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/melcloud"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

// coordinatorService is the slice of the coordinator the HTTP layer needs.
type coordinatorService interface {
	Buildings() []model.Building
	AtaUnit(id string) (*model.AtaUnit, bool)
	AtwUnit(id string) (*model.AtwUnit, bool)
	LastUpdateSucceeded() bool
	Stale() bool
	LastSuccessfulPoll() time.Time

	SetAtaPower(ctx context.Context, unitID string, on bool) error
	SetAtaStandby(ctx context.Context, unitID string, standby bool) error
	SetAtaMode(ctx context.Context, unitID string, mode model.AtaOperationMode) error
	SetAtaTemperature(ctx context.Context, unitID string, temp float64) error
	SetAtaFanSpeed(ctx context.Context, unitID string, speed int) error
	SetAtaVaneVertical(ctx context.Context, unitID, position string) error
	SetAtaVaneHorizontal(ctx context.Context, unitID, position string) error

	SetAtwPower(ctx context.Context, unitID string, on bool) error
	SetAtwStandby(ctx context.Context, unitID string, standby bool) error
	SetZoneTemperature(ctx context.Context, unitID string, zone int, temp float64) error
	SetZoneMode(ctx context.Context, unitID string, zone int, mode model.ZoneControlMode) error
	SetDhwTemperature(ctx context.Context, unitID string, temp float64) error
	SetForcedHotWater(ctx context.Context, unitID string, forced bool) error
}

type server struct {
	coord  coordinatorService
	logger *zap.Logger
}

func New(coord coordinatorService) *server {
	return &server{coord: coord, logger: zap.L()}
}

// Handler builds the full route table. Reads serve the cached snapshot and
// never block on the network; writes go through the coordinator's control
// pipeline.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.getHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/buildings", s.listBuildings)
	mux.HandleFunc("GET /api/v1/ata/{id}", s.getAta)
	mux.HandleFunc("GET /api/v1/atw/{id}", s.getAtw)

	mux.HandleFunc("PUT /api/v1/ata/{id}/power", s.putAtaPower)
	mux.HandleFunc("PUT /api/v1/ata/{id}/standby", s.putAtaStandby)
	mux.HandleFunc("PUT /api/v1/ata/{id}/mode", s.putAtaMode)
	mux.HandleFunc("PUT /api/v1/ata/{id}/temperature", s.putAtaTemperature)
	mux.HandleFunc("PUT /api/v1/ata/{id}/fan-speed", s.putAtaFanSpeed)
	mux.HandleFunc("PUT /api/v1/ata/{id}/vane-vertical", s.putAtaVaneVertical)
	mux.HandleFunc("PUT /api/v1/ata/{id}/vane-horizontal", s.putAtaVaneHorizontal)

	mux.HandleFunc("PUT /api/v1/atw/{id}/power", s.putAtwPower)
	mux.HandleFunc("PUT /api/v1/atw/{id}/standby", s.putAtwStandby)
	mux.HandleFunc("PUT /api/v1/atw/{id}/zones/{zone}/temperature", s.putZoneTemperature)
	mux.HandleFunc("PUT /api/v1/atw/{id}/zones/{zone}/mode", s.putZoneMode)
	mux.HandleFunc("PUT /api/v1/atw/{id}/dhw/temperature", s.putDhwTemperature)
	mux.HandleFunc("PUT /api/v1/atw/{id}/dhw/forced", s.putForcedHotWater)

	return LoggingMiddleware(mux)
}

func (s *server) getHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	healthy := s.coord.LastUpdateSucceeded() && !s.coord.Stale()
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy":              healthy,
		"stale":                s.coord.Stale(),
		"last_successful_poll": s.coord.LastSuccessfulPoll(),
	})
}

func (s *server) listBuildings(w http.ResponseWriter, r *http.Request) {
	buildings := s.coord.Buildings()
	views := make([]buildingView, 0, len(buildings))
	for bi := range buildings {
		views = append(views, newBuildingView(&buildings[bi]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) getAta(w http.ResponseWriter, r *http.Request) {
	unit, ok := s.coord.AtaUnit(r.PathValue("id"))
	if !ok {
		s.handleError(w, coordinator.ErrUnitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newAtaView(unit))
}

func (s *server) getAtw(w http.ResponseWriter, r *http.Request) {
	unit, ok := s.coord.AtwUnit(r.PathValue("id"))
	if !ok {
		s.handleError(w, coordinator.ErrUnitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newAtwView(unit))
}

func (s *server) putAtaPower(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[boolPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaPower(ctx, id, payload.Value)
	})
}

func (s *server) putAtaStandby(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[boolPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaStandby(ctx, id, payload.Value)
	})
}

func (s *server) putAtaMode(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[stringPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaMode(ctx, id, model.AtaOperationMode(payload.Value))
	})
}

func (s *server) putAtaTemperature(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[floatPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaTemperature(ctx, id, payload.Value)
	})
}

func (s *server) putAtaFanSpeed(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[intPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaFanSpeed(ctx, id, payload.Value)
	})
}

func (s *server) putAtaVaneVertical(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[stringPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaVaneVertical(ctx, id, payload.Value)
	})
}

func (s *server) putAtaVaneHorizontal(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[stringPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtaVaneHorizontal(ctx, id, payload.Value)
	})
}

func (s *server) putAtwPower(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[boolPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtwPower(ctx, id, payload.Value)
	})
}

func (s *server) putAtwStandby(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[boolPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetAtwStandby(ctx, id, payload.Value)
	})
}

func (s *server) putZoneTemperature(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		zone, err := zonePathValue(r)
		if err != nil {
			return err
		}
		payload, err := unmarshalPayload[floatPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetZoneTemperature(ctx, id, zone, payload.Value)
	})
}

func (s *server) putZoneMode(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		zone, err := zonePathValue(r)
		if err != nil {
			return err
		}
		payload, err := unmarshalPayload[stringPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetZoneMode(ctx, id, zone, model.ZoneControlMode(payload.Value))
	})
}

func (s *server) putDhwTemperature(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[floatPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetDhwTemperature(ctx, id, payload.Value)
	})
}

func (s *server) putForcedHotWater(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, func(ctx context.Context, id string) error {
		payload, err := unmarshalPayload[boolPayload](r)
		if err != nil {
			return err
		}
		return s.coord.SetForcedHotWater(ctx, id, payload.Value)
	})
}

func (s *server) control(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) error) {
	if err := fn(r.Context(), r.PathValue("id")); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("success"))
}

// handleError maps the pipeline's error types onto status codes: caller
// mistakes are 400, unknown units 404, cloud trouble 502.
func (s *server) handleError(w http.ResponseWriter, err error) {
	var valErr *melcloud.ValidationError
	var authErr *melcloud.AuthenticationError
	var apiErr *melcloud.APIError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
	case errors.Is(err, coordinator.ErrUnitNotFound):
		status = http.StatusNotFound
	case errors.As(err, &authErr), errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type boolPayload struct {
	Value bool `json:"value"`
}

type floatPayload struct {
	Value float64 `json:"value"`
}

type intPayload struct {
	Value int `json:"value"`
}

type stringPayload struct {
	Value string `json:"value"`
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	payload := new(T)
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		return nil, &melcloud.ValidationError{Field: "body", Value: nil, Reason: "malformed JSON payload"}
	}
	return payload, nil
}

func zonePathValue(r *http.Request) (int, error) {
	zone, err := strconv.Atoi(r.PathValue("zone"))
	if err != nil {
		return 0, &melcloud.ValidationError{Field: "zone", Value: r.PathValue("zone"), Reason: "not a number"}
	}
	return zone, nil
}
