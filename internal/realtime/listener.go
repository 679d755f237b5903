package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const pingInterval = 90 * time.Second

// Listener receives trigger notifications over a dedicated LISTEN
// connection and forwards them as Notifications.
type Listener struct {
	dsn          string
	logger       *logrus.Logger
	minReconnect time.Duration
	maxReconnect time.Duration
}

// NewListener creates a listener for the given connection string
func NewListener(dsn string, logger *logrus.Logger, minReconnect, maxReconnect time.Duration) *Listener {
	return &Listener{
		dsn:          dsn,
		logger:       logger,
		minReconnect: minReconnect,
		maxReconnect: maxReconnect,
	}
}

// Run listens until ctx is cancelled. After a reconnect it emits a resync
// notification since changes made while disconnected were not delivered.
func (l *Listener) Run(ctx context.Context, out chan<- Notification) error {
	listener := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			l.logger.WithError(err).Warn("Realtime listener connection lost")
		case pq.ListenerEventReconnected:
			l.logger.Info("Realtime listener reconnected")
		}
	})
	defer listener.Close()

	for _, ch := range Channels {
		if err := listener.Listen(string(ch)); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", ch, err)
		}
	}
	l.logger.Info("Realtime listener started")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Realtime listener stopped")
			return nil
		case n := <-listener.Notify:
			var (
				notification Notification
				err          error
			)
			if n == nil {
				notification = Notification{Resync: true}
			} else if notification, err = ParseNotification(n.Channel, n.Extra); err != nil {
				l.logger.WithError(err).Warn("Dropping malformed notification")
				continue
			}
			select {
			case out <- notification:
			case <-ctx.Done():
				return nil
			}
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				l.logger.WithError(err).Warn("Realtime listener ping failed")
			}
		}
	}
}
