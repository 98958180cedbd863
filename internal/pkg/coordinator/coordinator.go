package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/config"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/contxt"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/metrics"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/model"
	"github.com/andrew-blake/melcloudhome-sub001/internal/pkg/publisher"
)

// ErrUnitNotFound is returned for a unit id absent since the last poll.
// Device lists change between polls, so this is an expected condition.
var ErrUnitNotFound = errors.New("unit not found")

// ProtocolClient is the slice of the melcloud client the coordinator needs.
type ProtocolClient interface {
	Login(ctx context.Context, username, password string) (string, error)
	ListDevices(ctx context.Context, token string) ([]model.Building, error)

	SetAtaPower(ctx context.Context, token, deviceID string, on bool) error
	SetAtaStandby(ctx context.Context, token, deviceID string, standby bool) error
	SetAtaMode(ctx context.Context, token, deviceID string, mode model.AtaOperationMode) error
	SetAtaTemperature(ctx context.Context, token, deviceID string, temp float64) error
	SetAtaFanSpeed(ctx context.Context, token, deviceID string, speed int) error
	SetAtaVaneVertical(ctx context.Context, token, deviceID, position string) error
	SetAtaVaneHorizontal(ctx context.Context, token, deviceID, position string) error

	SetAtwPower(ctx context.Context, token, deviceID string, on bool) error
	SetAtwStandby(ctx context.Context, token, deviceID string, standby bool) error
	SetZoneTemperature(ctx context.Context, token, deviceID string, zone int, temp float64) error
	SetZoneMode(ctx context.Context, token, deviceID string, zone int, mode model.ZoneControlMode) error
	SetDhwTemperature(ctx context.Context, token, deviceID string, temp float64) error
	SetForcedHotWater(ctx context.Context, token, deviceID string, forced bool) error
}

type ataEntry struct {
	unit     *model.AtaUnit
	building *model.Building
}

type atwEntry struct {
	unit     *model.AtwUnit
	building *model.Building
}

// snapshot is one immutable view of the cloud state. It is built fully,
// then swapped in with a single atomic store, so readers see either the
// whole old state or the whole new state, never a mix.
type snapshot struct {
	buildings []model.Building
	ata       map[string]ataEntry
	atw       map[string]atwEntry
	takenAt   time.Time
}

// Coordinator owns the session, the poll loop and the cached snapshot, and
// routes control operations to the cloud with dedup, capability checks and
// a debounced refresh.
type Coordinator struct {
	client ProtocolClient
	logger *zap.Logger

	username   string
	password   string
	interval   time.Duration
	debounce   time.Duration
	staleAfter int

	sessionMu sync.Mutex
	session   string

	current atomic.Pointer[snapshot]

	pollMu   sync.Mutex // an in-flight poll suppresses overlap
	lastOK   atomic.Bool
	failures atomic.Int32
	lastPoll atomic.Int64 // unix seconds of last successful poll

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
	stopped       bool

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func New(client ProtocolClient, cfg *config.MelCloudConfig) *Coordinator {
	return &Coordinator{
		client:     client,
		logger:     zap.L(),
		username:   cfg.Username,
		password:   cfg.Password,
		interval:   cfg.PollInterval,
		debounce:   cfg.DebounceWindow,
		staleAfter: cfg.StaleAfter,
	}
}

// Start authenticates, runs the first poll and schedules the fixed-interval
// loop. A failed initial authentication aborts startup; a failed initial
// poll does not, the next cycle retries it.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runCtx, c.cancel = context.WithCancel(ctx)

	if _, err := c.ensureSession(c.runCtx); err != nil {
		return fmt.Errorf("initial authentication: %w", err)
	}
	if err := c.Poll(c.runCtx); err != nil {
		c.logger.Warn("initial poll failed, retrying next cycle", zap.Error(err))
	}

	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := cr.AddFunc(fmt.Sprintf("@every %s", c.interval), func() {
		_ = c.Poll(c.runCtx)
	}); err != nil {
		return err
	}
	cr.Start()
	c.cron = cr
	return nil
}

// Stop tears the coordinator down: the poll schedule is stopped and drained
// so an in-flight cycle completes rather than being aborted, the pending
// debounce refresh is cancelled, and the session is released.
func (c *Coordinator) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}

	c.debounceMu.Lock()
	c.stopped = true
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.debounceMu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	// wait out a poll already in flight
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	c.sessionMu.Lock()
	c.session = ""
	c.sessionMu.Unlock()
	c.logger.Info("coordinator stopped")
}

// Poll fetches the full device list and atomically replaces the snapshot
// and both index maps. Failures are absorbed: the next scheduled cycle
// retries, with no backoff, because the server rate limit is strict.
func (c *Coordinator) Poll(ctx context.Context) error {
	if !c.pollMu.TryLock() {
		return nil
	}
	defer c.pollMu.Unlock()

	metrics.PollsTotal.Inc()
	var buildings []model.Building
	err := c.withSession(ctx, func(token string) error {
		got, err := c.client.ListDevices(ctx, token)
		if err != nil {
			return err
		}
		buildings = got
		return nil
	})
	if err != nil {
		c.lastOK.Store(false)
		n := c.failures.Add(1)
		metrics.PollFailures.Inc()
		c.logger.Error("poll failed", zap.Error(err), zap.Int32("consecutive_failures", n))
		return err
	}

	c.install(buildings)
	c.failures.Store(0)
	c.lastOK.Store(true)
	c.lastPoll.Store(time.Now().Unix())
	metrics.LastPollSuccess.SetToCurrentTime()

	if err := publisher.PublishSnapshot(contxt.NewContext(10*time.Second), buildings); err != nil {
		c.logger.Error("failed to publish snapshot", zap.Error(err))
	}
	return nil
}

func (c *Coordinator) install(buildings []model.Building) {
	snap := &snapshot{
		buildings: buildings,
		ata:       make(map[string]ataEntry),
		atw:       make(map[string]atwEntry),
		takenAt:   time.Now(),
	}
	for bi := range buildings {
		b := &buildings[bi]
		for ui := range b.AirToAir {
			u := &b.AirToAir[ui]
			snap.ata[u.ID] = ataEntry{unit: u, building: b}
		}
		for ui := range b.AirToWater {
			u := &b.AirToWater[ui]
			snap.atw[u.ID] = atwEntry{unit: u, building: b}
		}
	}
	c.current.Store(snap)

	metrics.Devices.WithLabelValues("air_to_air").Set(float64(len(snap.ata)))
	metrics.Devices.WithLabelValues("air_to_water").Set(float64(len(snap.atw)))
	c.logger.Debug("snapshot installed",
		zap.Int("buildings", len(buildings)),
		zap.Int("ata_units", len(snap.ata)),
		zap.Int("atw_units", len(snap.atw)))
}

// armRefresh schedules one debounced poll. Each call within the window
// resets the timer, so a burst of control writes collapses into a single
// refresh once the window closes quiet.
func (c *Coordinator) armRefresh() {
	c.debounceMu.Lock()
	defer c.debounceMu.Unlock()
	if c.stopped {
		return
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.debounce, func() {
		c.debounceMu.Lock()
		stopped := c.stopped
		c.debounceMu.Unlock()
		if stopped {
			return
		}
		_ = c.Poll(c.runCtx)
	})
}

// AtaUnit returns the cached air-to-air unit for id.
func (c *Coordinator) AtaUnit(id string) (*model.AtaUnit, bool) {
	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	e, ok := snap.ata[id]
	return e.unit, ok
}

// AtwUnit returns the cached air-to-water unit for id.
func (c *Coordinator) AtwUnit(id string) (*model.AtwUnit, bool) {
	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	e, ok := snap.atw[id]
	return e.unit, ok
}

// BuildingFor returns the building owning the given unit id, of either
// family.
func (c *Coordinator) BuildingFor(unitID string) (*model.Building, bool) {
	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	if e, ok := snap.ata[unitID]; ok {
		return e.building, true
	}
	if e, ok := snap.atw[unitID]; ok {
		return e.building, true
	}
	return nil, false
}

// Buildings returns the last snapshot. Callers hold immutable references
// and must not modify them.
func (c *Coordinator) Buildings() []model.Building {
	snap := c.current.Load()
	if snap == nil {
		return nil
	}
	return snap.buildings
}

func (c *Coordinator) LastUpdateSucceeded() bool {
	return c.lastOK.Load()
}

// Stale reports whether enough consecutive polls have failed that the cache
// should no longer be presented as current.
func (c *Coordinator) Stale() bool {
	return int(c.failures.Load()) >= c.staleAfter
}

// LastSuccessfulPoll returns the time of the last successful poll, zero if
// none has succeeded yet.
func (c *Coordinator) LastSuccessfulPoll() time.Time {
	ts := c.lastPoll.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
