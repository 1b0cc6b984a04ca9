package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/oshokin/camera-funnel/internal/logger"
)

// ErrAlreadyRunning is returned by Start on a running listener.
var ErrAlreadyRunning = errors.New("listener is already running")

// Listener runs an http.Handler with explicit Start and Stop.
type Listener struct {
	name    string
	address string
	handler http.Handler
	timeout time.Duration

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
	done   chan struct{}
}

// NewListener creates a stopped listener.
func NewListener(name, address string, handler http.Handler, timeout time.Duration) *Listener {
	return &Listener{
		name:    name,
		address: address,
		handler: handler,
		timeout: timeout,
	}
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.name
}

// Addr returns the bound address while running.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.addr
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return ErrAlreadyRunning
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", l.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.address, err)
	}

	server := &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			// Requests inherit the logger but not the cancellation of the starter.
			return context.WithoutCancel(ctx)
		},
	}

	if l.timeout > 0 {
		server.ReadTimeout = l.timeout
		server.WriteTimeout = l.timeout
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "HTTP listener failed", "listener", l.name, "error", err)
		}
	}()

	l.server = server
	l.addr = lis.Addr()
	l.done = done

	logger.InfoKV(ctx, "HTTP listener started", "listener", l.name, "address", l.addr.String())

	return nil
}

// Stop shuts the server down gracefully. Stopping a stopped listener is a no-op.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	server, done := l.server, l.done
	l.server, l.addr, l.done = nil, nil, nil
	l.mu.Unlock()

	if server == nil {
		return nil
	}

	err := server.Shutdown(ctx)
	<-done

	if err != nil {
		return fmt.Errorf("shutdown %s: %w", l.name, err)
	}

	logger.InfoKV(ctx, "HTTP listener stopped", "listener", l.name)

	return nil
}
