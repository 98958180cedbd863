package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/coordinator"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/melcloud"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
)

type fakeCoordinator struct {
	buildings []model.Building
	healthy   bool
	stale     bool

	controlErr  error
	lastControl string
}

func (f *fakeCoordinator) Buildings() []model.Building { return f.buildings }

func (f *fakeCoordinator) AtaUnit(id string) (*model.AtaUnit, bool) {
	for bi := range f.buildings {
		for ui := range f.buildings[bi].AirToAir {
			if f.buildings[bi].AirToAir[ui].ID == id {
				return &f.buildings[bi].AirToAir[ui], true
			}
		}
	}
	return nil, false
}

func (f *fakeCoordinator) AtwUnit(id string) (*model.AtwUnit, bool) {
	for bi := range f.buildings {
		for ui := range f.buildings[bi].AirToWater {
			if f.buildings[bi].AirToWater[ui].ID == id {
				return &f.buildings[bi].AirToWater[ui], true
			}
		}
	}
	return nil, false
}

func (f *fakeCoordinator) LastUpdateSucceeded() bool     { return f.healthy }
func (f *fakeCoordinator) Stale() bool                   { return f.stale }
func (f *fakeCoordinator) LastSuccessfulPoll() time.Time { return time.Unix(1700000000, 0) }

func (f *fakeCoordinator) control(name string) error {
	f.lastControl = name
	return f.controlErr
}

func (f *fakeCoordinator) SetAtaPower(ctx context.Context, unitID string, on bool) error {
	return f.control("ata_power")
}

func (f *fakeCoordinator) SetAtaStandby(ctx context.Context, unitID string, standby bool) error {
	return f.control("ata_standby")
}

func (f *fakeCoordinator) SetAtaMode(ctx context.Context, unitID string, mode model.AtaOperationMode) error {
	return f.control("ata_mode")
}

func (f *fakeCoordinator) SetAtaTemperature(ctx context.Context, unitID string, temp float64) error {
	return f.control("ata_temperature")
}

func (f *fakeCoordinator) SetAtaFanSpeed(ctx context.Context, unitID string, speed int) error {
	return f.control("ata_fan_speed")
}

func (f *fakeCoordinator) SetAtaVaneVertical(ctx context.Context, unitID, position string) error {
	return f.control("ata_vane_vertical")
}

func (f *fakeCoordinator) SetAtaVaneHorizontal(ctx context.Context, unitID, position string) error {
	return f.control("ata_vane_horizontal")
}

func (f *fakeCoordinator) SetAtwPower(ctx context.Context, unitID string, on bool) error {
	return f.control("atw_power")
}

func (f *fakeCoordinator) SetAtwStandby(ctx context.Context, unitID string, standby bool) error {
	return f.control("atw_standby")
}

func (f *fakeCoordinator) SetZoneTemperature(ctx context.Context, unitID string, zone int, temp float64) error {
	return f.control("zone_temperature")
}

func (f *fakeCoordinator) SetZoneMode(ctx context.Context, unitID string, zone int, mode model.ZoneControlMode) error {
	return f.control("zone_mode")
}

func (f *fakeCoordinator) SetDhwTemperature(ctx context.Context, unitID string, temp float64) error {
	return f.control("dhw_temperature")
}

func (f *fakeCoordinator) SetForcedHotWater(ctx context.Context, unitID string, forced bool) error {
	return f.control("forced_hot_water")
}

func testFake() *fakeCoordinator {
	return &fakeCoordinator{
		healthy: true,
		buildings: []model.Building{{
			ID:   "1",
			Name: "Home",
			AirToAir: []model.AtaUnit{{
				ID:    "7",
				Name:  "Living Room",
				Power: true,
				Mode:  model.AtaModeHeat,
			}},
			AirToWater: []model.AtwUnit{{
				ID:     "42",
				Name:   "Heat Pump",
				Power:  true,
				Status: model.StatusIdle,
				Zones: [2]model.Zone{{
					Present:           true,
					ControlMode:       model.ZoneModeRoomTemperature,
					TargetTemperature: 21.0,
					RoomTemperature:   19.0,
				}},
				Dhw: model.Dhw{TargetTemperature: 50.0, TankTemperature: 46.0, ForcedProduction: true},
			}},
		}},
	}
}

func do(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthHealthy(t *testing.T) {
	handler := New(testFake()).Handler()
	rec := do(t, handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])
}

func TestHealthStale(t *testing.T) {
	fake := testFake()
	fake.stale = true
	handler := New(fake).Handler()

	rec := do(t, handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListBuildings(t *testing.T) {
	handler := New(testFake()).Handler()
	rec := do(t, handler, http.MethodGet, "/api/v1/buildings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []buildingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Home", views[0].Name)
	require.Len(t, views[0].AirToWater, 1)
}

func TestGetAtwExposesDerivedState(t *testing.T) {
	handler := New(testFake()).Handler()
	rec := do(t, handler, http.MethodGet, "/api/v1/atw/42", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view atwView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	// Forced production with the tank below target overrides the idle status.
	assert.Equal(t, string(model.StatusHotWater), view.OperationStatus)
	assert.True(t, view.Dhw.Heating)
	require.NotNil(t, view.Zone1)
	assert.False(t, view.Zone1.Active, "zone cannot heat while the valve serves the tank")
	assert.Nil(t, view.Zone2)
}

func TestGetUnitNotFound(t *testing.T) {
	handler := New(testFake()).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, handler, http.MethodGet, "/api/v1/ata/99", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, handler, http.MethodGet, "/api/v1/atw/99", "").Code)
}

func TestControlRoutesDispatch(t *testing.T) {
	for _, tc := range []struct {
		path string
		body string
		want string
	}{
		{"/api/v1/ata/7/power", `{"value": true}`, "ata_power"},
		{"/api/v1/ata/7/standby", `{"value": false}`, "ata_standby"},
		{"/api/v1/ata/7/mode", `{"value": "Heat"}`, "ata_mode"},
		{"/api/v1/ata/7/temperature", `{"value": 21.5}`, "ata_temperature"},
		{"/api/v1/ata/7/fan-speed", `{"value": 3}`, "ata_fan_speed"},
		{"/api/v1/ata/7/vane-vertical", `{"value": "Swing"}`, "ata_vane_vertical"},
		{"/api/v1/ata/7/vane-horizontal", `{"value": "Auto"}`, "ata_vane_horizontal"},
		{"/api/v1/atw/42/power", `{"value": true}`, "atw_power"},
		{"/api/v1/atw/42/standby", `{"value": false}`, "atw_standby"},
		{"/api/v1/atw/42/zones/1/temperature", `{"value": 22.0}`, "zone_temperature"},
		{"/api/v1/atw/42/zones/1/mode", `{"value": "HeatFlowTemperature"}`, "zone_mode"},
		{"/api/v1/atw/42/dhw/temperature", `{"value": 52.0}`, "dhw_temperature"},
		{"/api/v1/atw/42/dhw/forced", `{"value": true}`, "forced_hot_water"},
	} {
		t.Run(tc.want, func(t *testing.T) {
			fake := testFake()
			handler := New(fake).Handler()
			rec := do(t, handler, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, fake.lastControl)
		})
	}
}

func TestControlErrorMapping(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want int
	}{
		{"validation", &melcloud.ValidationError{Field: "temperature", Value: 99.0, Reason: "out of range"}, http.StatusBadRequest},
		{"not found", coordinator.ErrUnitNotFound, http.StatusNotFound},
		{"auth", &melcloud.AuthenticationError{StatusCode: 401, Reason: "expired"}, http.StatusBadGateway},
		{"cloud", &melcloud.APIError{StatusCode: 502, Reason: "bad gateway"}, http.StatusBadGateway},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fake := testFake()
			fake.controlErr = tc.err
			handler := New(fake).Handler()
			rec := do(t, handler, http.MethodPut, "/api/v1/atw/42/dhw/temperature", `{"value": 52.0}`)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestControlMalformedBody(t *testing.T) {
	handler := New(testFake()).Handler()
	rec := do(t, handler, http.MethodPut, "/api/v1/ata/7/power", `{"value":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZonePathMustBeNumeric(t *testing.T) {
	handler := New(testFake()).Handler()
	rec := do(t, handler, http.MethodPut, "/api/v1/atw/42/zones/one/temperature", `{"value": 21.0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
