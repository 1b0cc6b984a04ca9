package funnel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/oshokin/camera-funnel/internal/logger"
)

// ErrUnknownListener is returned by Stop for a name that was never added.
var ErrUnknownListener = errors.New("unknown listener")

// Listener is an ingress or operational endpoint with an explicit lifecycle.
type Listener interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// StatusSink is told whenever a listener goes up or down.
type StatusSink interface {
	SetListenerUp(name string, up bool)
}

// Supervisor starts listeners independently; one failing bind never blocks the others.
type Supervisor struct {
	sinks []StatusSink

	mu        sync.Mutex
	listeners []Listener
	running   map[string]bool
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor(sinks ...StatusSink) *Supervisor {
	return &Supervisor{
		sinks:   sinks,
		running: make(map[string]bool),
	}
}

// Add registers a listener; it is reported as down until started.
func (s *Supervisor) Add(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.running[l.Name()] = false
	s.mu.Unlock()

	s.publish(l.Name(), false)
}

// StartAll starts every listener and returns how many are running.
func (s *Supervisor) StartAll(ctx context.Context) int {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	started := 0

	for _, l := range listeners {
		if err := l.Start(ctx); err != nil {
			logger.ErrorKV(
				ctx,
				"Listener failed to start",
				"listener", l.Name(),
				"reason", DescribeListenError(err),
				"error", err,
			)

			continue
		}

		s.setRunning(l.Name(), true)

		started++
	}

	return started
}

// StopAll stops running listeners in reverse order.
func (s *Supervisor) StopAll(ctx context.Context) error {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	var errs []error

	for i := len(listeners) - 1; i >= 0; i-- {
		l := listeners[i]
		if !s.isRunning(l.Name()) {
			continue
		}

		if err := s.stop(ctx, l); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Stop stops one listener by name and leaves the rest running.
// Stopping a listener that is not running is a no-op.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	s.mu.Lock()

	var target Listener

	for _, l := range s.listeners {
		if l.Name() == name {
			target = l

			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownListener, name)
	}

	if !s.isRunning(name) {
		return nil
	}

	return s.stop(ctx, target)
}

func (s *Supervisor) stop(ctx context.Context, l Listener) error {
	err := l.Stop(ctx)
	s.setRunning(l.Name(), false)

	if err != nil {
		return fmt.Errorf("stop %s listener: %w", l.Name(), err)
	}

	return nil
}

// Statuses reports every registered listener and whether it runs.
func (s *Supervisor) Statuses() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]bool, len(s.running))
	for name, up := range s.running {
		result[name] = up
	}

	return result
}

func (s *Supervisor) isRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running[name]
}

func (s *Supervisor) setRunning(name string, up bool) {
	s.mu.Lock()
	s.running[name] = up
	s.mu.Unlock()

	s.publish(name, up)
}

func (s *Supervisor) publish(name string, up bool) {
	for _, sink := range s.sinks {
		sink.SetListenerUp(name, up)
	}
}

// DescribeListenError turns a bind failure into an operator-facing reason.
func DescribeListenError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, syscall.EADDRINUSE):
		return "address already in use"
	case errors.Is(err, syscall.EACCES), errors.Is(err, os.ErrPermission):
		return "permission denied, a privileged port needs elevated rights"
	case errors.Is(err, syscall.EADDRNOTAVAIL):
		return "address not available on this host"
	default:
		return err.Error()
	}
}
