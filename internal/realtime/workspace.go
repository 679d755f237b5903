package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/autosave"
	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/service"
)

const inboxSize = 32

// Store is the data-access boundary a workspace reads and writes through
type Store interface {
	FetchHouseholds(ctx context.Context) ([]models.HouseholdView, error)
	LoadSettings(ctx context.Context) (*models.PlannerData, error)
	SaveSettings(ctx context.Context, data *models.PlannerData) error
	UpdateHousehold(ctx context.Context, id uuid.UUID, patch models.HouseholdPatch) error
	UpdateGuest(ctx context.Context, id uuid.UUID, patch models.GuestPatch) error
	MigrateLegacyPayload(ctx context.Context, data *models.PlannerData) (service.MigrationReport, error)
}

// State is a copy of a workspace's in-memory view
type State struct {
	Households []models.HouseholdView `json:"households"`
	Settings   *models.PlannerData    `json:"settings"`
}

// Workspace holds one owner's households and settings in memory and keeps
// them consistent with backend changes made elsewhere.
//
// Household edits are applied locally before the write returns. A refresh
// may overwrite an optimistic edit that has not round-tripped yet; the next
// notification for that write brings the state back in line.
type Workspace struct {
	owner   uuid.UUID
	store   Store
	logger  *logrus.Logger
	metrics *metrics.Metrics
	saver   *autosave.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan Notification
	wake   chan struct{}
	lost   atomic.Bool
	done   chan struct{}
	stop   sync.Once

	refresh sync.Mutex

	mu           sync.Mutex
	households   []models.HouseholdView
	settings     *models.PlannerData
	lastSnapshot string
	subs         map[int]chan State
	nextSub      int
	closed       bool
}

// NewWorkspace creates a workspace for owner. Call Load before use and
// Close when done.
func NewWorkspace(owner uuid.UUID, store Store, logger *logrus.Logger, m *metrics.Metrics, autosaveDelay time.Duration) *Workspace {
	ctx, cancel := context.WithCancel(auth.WithUser(context.Background(), owner))
	w := &Workspace{
		owner:      owner,
		store:      store,
		logger:     logger,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
		inbox:      make(chan Notification, inboxSize),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		households: []models.HouseholdView{},
		settings:   models.DefaultPlannerData(),
		subs:       make(map[int]chan State),
	}
	w.saver = autosave.New(autosaveDelay, w.save)
	go w.run()
	return w
}

// Owner returns the owner id the workspace serves
func (w *Workspace) Owner() uuid.UUID {
	return w.owner
}

// Load performs the initial fetch of households and settings, migrating a
// legacy guest list found in the settings payload.
func (w *Workspace) Load(ctx context.Context) {
	ctx = auth.WithUser(ctx, w.owner)
	w.Refresh(ctx)

	data, err := w.store.LoadSettings(ctx)
	if err != nil {
		return
	}
	if data == nil {
		data = models.DefaultPlannerData()
	}

	if data.HasLegacyGuests() {
		if _, err := w.store.MigrateLegacyPayload(ctx, data); err == nil {
			w.mu.Lock()
			w.settings = data.Clone()
			w.mu.Unlock()
			w.save()
			w.Refresh(ctx)
			return
		}
	}

	w.mu.Lock()
	w.settings = data
	if snap, err := data.Snapshot(); err == nil {
		w.lastSnapshot = snap
	}
	w.mu.Unlock()
	w.publish()
}

// Refresh replaces the in-memory households with a fresh fetch. A failed
// fetch keeps the current state.
func (w *Workspace) Refresh(ctx context.Context) {
	w.refresh.Lock()
	defer w.refresh.Unlock()

	households, err := w.store.FetchHouseholds(auth.WithUser(ctx, w.owner))
	if err != nil {
		w.logger.WithError(err).WithField("user_id", w.owner).Warn("Keeping households after failed refresh")
		return
	}

	w.mu.Lock()
	w.households = households
	w.mu.Unlock()
	w.publish()
}

// Notify queues a change notification without blocking the caller. When the
// queue is full the notification is dropped and a resync is scheduled.
func (w *Workspace) Notify(n Notification) {
	select {
	case w.inbox <- n:
	default:
		w.lost.Store(true)
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

func (w *Workspace) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case n := <-w.inbox:
			w.handle(n)
		case <-w.wake:
		}
		if w.lost.Swap(false) {
			w.handle(Notification{Resync: true})
		}
	}
}

func (w *Workspace) handle(n Notification) {
	switch {
	case n.Resync:
		w.metrics.Refreshes.WithLabelValues("resync").Inc()
		w.Refresh(w.ctx)
		w.reloadSettings()
	case n.Table == TableSettings:
		w.ApplySettings(n)
	default:
		w.metrics.Refreshes.WithLabelValues(string(n.Table)).Inc()
		w.Refresh(w.ctx)
	}
}

// ApplySettings applies a settings notification directly. A payload equal
// to the last one saved or applied is ignored, which keeps the workspace's
// own autosave writes from coming back as changes. It reports whether the
// in-memory settings changed.
func (w *Workspace) ApplySettings(n Notification) bool {
	var data *models.PlannerData
	switch {
	case n.Op == "DELETE":
		data = models.DefaultPlannerData()
	case len(n.Data) == 0:
		return w.reloadSettings()
	default:
		data = &models.PlannerData{}
		if err := json.Unmarshal(n.Data, data); err != nil {
			w.logger.WithError(err).WithField("user_id", w.owner).Warn("Ignoring undecodable settings payload")
			return false
		}
	}
	return w.applySettings(data)
}

func (w *Workspace) reloadSettings() bool {
	data, err := w.store.LoadSettings(w.ctx)
	if err != nil {
		return false
	}
	if data == nil {
		data = models.DefaultPlannerData()
	}
	return w.applySettings(data)
}

func (w *Workspace) applySettings(data *models.PlannerData) bool {
	snap, err := data.Snapshot()
	if err != nil {
		return false
	}

	w.mu.Lock()
	if snap == w.lastSnapshot {
		w.mu.Unlock()
		w.metrics.SuppressedEchos.Inc()
		return false
	}
	w.settings = data
	w.lastSnapshot = snap
	w.mu.Unlock()

	w.publish()
	return true
}

// EditSettings applies fn to the in-memory settings and schedules a save
func (w *Workspace) EditSettings(fn func(data *models.PlannerData)) {
	w.mu.Lock()
	fn(w.settings)
	w.mu.Unlock()

	w.publish()
	w.saver.Trigger()
}

func (w *Workspace) save() {
	w.mu.Lock()
	data := w.settings.Clone()
	snap, err := data.Snapshot()
	if err == nil {
		w.lastSnapshot = snap
	}
	w.mu.Unlock()

	if err := w.store.SaveSettings(w.ctx, data); err != nil {
		w.metrics.AutosaveWrites.WithLabelValues("error").Inc()
		return
	}
	w.metrics.AutosaveWrites.WithLabelValues("ok").Inc()
}

// UpdateHousehold applies patch locally, then writes it. A failed write
// refreshes from the backend.
func (w *Workspace) UpdateHousehold(ctx context.Context, id uuid.UUID, patch models.HouseholdPatch) error {
	w.mu.Lock()
	for i := range w.households {
		if w.households[i].ID == id {
			patch.Apply(&w.households[i].Household)
			break
		}
	}
	w.mu.Unlock()
	w.publish()

	ctx = auth.WithUser(ctx, w.owner)
	if err := w.store.UpdateHousehold(ctx, id, patch); err != nil {
		w.Refresh(ctx)
		return err
	}
	return nil
}

// UpdateGuest applies patch locally, then writes it. A failed write
// refreshes from the backend.
func (w *Workspace) UpdateGuest(ctx context.Context, id uuid.UUID, patch models.GuestPatch) error {
	w.mu.Lock()
	found := false
	for i := range w.households {
		for j := range w.households[i].Guests {
			if w.households[i].Guests[j].ID == id {
				patch.Apply(&w.households[i].Guests[j])
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	w.mu.Unlock()
	w.publish()

	ctx = auth.WithUser(ctx, w.owner)
	if err := w.store.UpdateGuest(ctx, id, patch); err != nil {
		w.Refresh(ctx)
		return err
	}
	return nil
}

// Households returns a copy of the in-memory household views
func (w *Workspace) Households() []models.HouseholdView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return copyHouseholds(w.households)
}

// Settings returns a copy of the in-memory settings
func (w *Workspace) Settings() *models.PlannerData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings.Clone()
}

// State returns a copy of the whole in-memory view
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Workspace) stateLocked() State {
	return State{Households: copyHouseholds(w.households), Settings: w.settings.Clone()}
}

// Subscribe returns a channel that receives the latest state after every
// change. Slow readers only see the most recent state.
func (w *Workspace) Subscribe() (<-chan State, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan State, 1)
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	ch <- w.stateLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if sub, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(sub)
			}
		})
	}
}

func (w *Workspace) publish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.subs) == 0 {
		return
	}
	state := w.stateLocked()
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

// Close writes any pending settings edit and stops the workspace
func (w *Workspace) Close() {
	w.stop.Do(func() {
		w.saver.Flush()
		w.saver.Stop()
		w.cancel()
		<-w.done

		w.mu.Lock()
		defer w.mu.Unlock()
		w.closed = true
		for id, ch := range w.subs {
			delete(w.subs, id)
			close(ch)
		}
	})
}

func copyHouseholds(in []models.HouseholdView) []models.HouseholdView {
	out := make([]models.HouseholdView, len(in))
	for i, v := range in {
		out[i] = v
		out[i].Guests = append([]models.Guest(nil), v.Guests...)
	}
	return out
}
