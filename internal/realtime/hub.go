package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/metrics"
)

type hubEntry struct {
	ws    *Workspace
	refs  int
	ready chan struct{}
}

// Hub owns the live workspaces and routes notifications to them. A
// workspace lives while at least one client holds it.
type Hub struct {
	store         Store
	logger        *logrus.Logger
	metrics       *metrics.Metrics
	autosaveDelay time.Duration

	mu         sync.Mutex
	workspaces map[uuid.UUID]*hubEntry
}

// NewHub creates an empty hub
func NewHub(store Store, logger *logrus.Logger, m *metrics.Metrics, autosaveDelay time.Duration) *Hub {
	return &Hub{
		store:         store,
		logger:        logger,
		metrics:       m,
		autosaveDelay: autosaveDelay,
		workspaces:    make(map[uuid.UUID]*hubEntry),
	}
}

// Acquire returns the owner's workspace, loading it on first use. The
// returned release func must be called once the caller is done with it.
func (h *Hub) Acquire(ctx context.Context, owner uuid.UUID) (*Workspace, func()) {
	h.mu.Lock()
	entry, ok := h.workspaces[owner]
	if ok {
		entry.refs++
		h.mu.Unlock()
		<-entry.ready
	} else {
		entry = &hubEntry{
			ws:    NewWorkspace(owner, h.store, h.logger, h.metrics, h.autosaveDelay),
			refs:  1,
			ready: make(chan struct{}),
		}
		h.workspaces[owner] = entry
		h.metrics.LiveWorkspaces.Inc()
		h.mu.Unlock()

		entry.ws.Load(ctx)
		close(entry.ready)
		h.logger.WithField("user_id", owner).Debug("Opened workspace")
	}

	var once sync.Once
	return entry.ws, func() {
		once.Do(func() { h.release(owner, entry) })
	}
}

func (h *Hub) release(owner uuid.UUID, entry *hubEntry) {
	h.mu.Lock()
	entry.refs--
	if entry.refs > 0 {
		h.mu.Unlock()
		return
	}
	if h.workspaces[owner] == entry {
		delete(h.workspaces, owner)
		h.metrics.LiveWorkspaces.Dec()
	}
	h.mu.Unlock()

	entry.ws.Close()
	h.logger.WithField("user_id", owner).Debug("Closed workspace")
}

// Dispatch routes a notification. Guest changes cannot be attributed to an
// owner from the payload, so they go to every workspace along with resyncs.
func (h *Hub) Dispatch(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n.Resync || n.Table == TableGuests {
		for _, entry := range h.workspaces {
			entry.ws.Notify(n)
		}
		return
	}
	if entry, ok := h.workspaces[n.UserID]; ok {
		entry.ws.Notify(n)
	}
}

// Run dispatches notifications from in until ctx is cancelled, then closes
// every workspace.
func (h *Hub) Run(ctx context.Context, in <-chan Notification) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-in:
			h.Dispatch(n)
		}
	}
}

// Len returns the number of live workspaces
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.workspaces)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	entries := make([]*hubEntry, 0, len(h.workspaces))
	for owner, entry := range h.workspaces {
		entries = append(entries, entry)
		delete(h.workspaces, owner)
		h.metrics.LiveWorkspaces.Dec()
	}
	h.mu.Unlock()

	for _, entry := range entries {
		<-entry.ready
		entry.ws.Close()
	}
}
