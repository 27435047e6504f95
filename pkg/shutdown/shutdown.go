package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/buildhook/webhook-dispatcher/pkg/logging"
	"github.com/sirupsen/logrus"
)

// Manager runs cleanup steps once a termination signal arrives. Steps run in
// registration order and share a single deadline.
type Manager struct {
	logger         *logrus.Logger
	signals        chan os.Signal
	steps          []step
	timeout        time.Duration
	mu             sync.Mutex
	isShuttingDown bool
	done           chan struct{}
	err            error
}

// Handler performs one cleanup step during shutdown
type Handler func(ctx context.Context) error

type step struct {
	name    string
	handler Handler
}

// NewManager creates a shutdown manager whose steps must finish within timeout
func NewManager(timeout time.Duration, logger *logrus.Logger) *Manager {
	return &Manager{
		logger:  logger,
		signals: make(chan os.Signal, 1),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// RegisterHandler appends a named step. Steps registered after shutdown has
// begun are ignored.
func (m *Manager) RegisterHandler(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isShuttingDown {
		m.logger.WithField("handler", name).Warn("Shutdown already in progress, handler not registered")
		return
	}
	m.steps = append(m.steps, step{name: name, handler: handler})
}

// WaitForShutdown blocks until SIGTERM, SIGINT or Trigger, then shuts down
func (m *Manager) WaitForShutdown() error {
	signal.Notify(m.signals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(m.signals)

	sig := <-m.signals

	logging.LogShutdownInitiated(m.logger, sig.String())

	return m.Shutdown()
}

// Trigger requests shutdown as if SIGTERM had been received
func (m *Manager) Trigger() {
	select {
	case m.signals <- syscall.SIGTERM:
	default:
	}
}

// Shutdown runs every step once. A failing step does not stop the ones after
// it; the failures are joined into the returned error. Later calls wait for
// the first one and return its result.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.isShuttingDown {
		m.mu.Unlock()
		<-m.done
		return m.err
	}
	m.isShuttingDown = true
	steps := append([]step(nil), m.steps...)
	m.mu.Unlock()

	m.logger.Info("Starting graceful shutdown")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var errs []error
	for _, s := range steps {
		if err := m.run(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}

	m.err = errors.Join(errs...)

	duration := time.Since(start).Seconds()
	switch {
	case ctx.Err() != nil:
		m.logger.WithFields(logrus.Fields{
			"duration": duration,
			"timeout":  m.timeout.Seconds(),
		}).Error("Shutdown timeout exceeded")
	case m.err != nil:
		m.logger.WithFields(logrus.Fields{
			"duration": duration,
			"errors":   len(errs),
		}).Warn("Shutdown completed with errors")
	default:
		logging.LogShutdownComplete(m.logger, duration)
	}

	close(m.done)
	return m.err
}

func (m *Manager) run(ctx context.Context, s step) error {
	log := m.logger.WithField("handler", s.name)
	log.Info("Executing shutdown handler")
	start := time.Now()

	if err := ctx.Err(); err != nil {
		log.Warn("Skipping shutdown handler, deadline already passed")
		return fmt.Errorf("%s: %w", s.name, err)
	}

	if err := s.handler(ctx); err != nil {
		log.WithFields(logrus.Fields{
			"duration": time.Since(start).Seconds(),
			"error":    err.Error(),
		}).Error("Shutdown handler failed")
		return fmt.Errorf("%s: %w", s.name, err)
	}

	log.WithField("duration", time.Since(start).Seconds()).Info("Shutdown handler completed")
	return nil
}
