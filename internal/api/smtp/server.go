package smtp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	gosmtp "github.com/emersion/go-smtp"

	"github.com/oshokin/camera-funnel/internal/config"
	"github.com/oshokin/camera-funnel/internal/logger"
)

const (
	// Name identifies the listener.
	Name = "smtp"

	maxRecipients = 50
	ioTimeout     = 30 * time.Second
)

// ErrAlreadyRunning is returned by Start on a running adapter.
var ErrAlreadyRunning = errors.New("smtp adapter is already running")

// Adapter owns the SMTP listener.
type Adapter struct {
	cfg      config.SMTPConfig
	loopback Loopback
	recorder Recorder

	mu       sync.Mutex
	server   *gosmtp.Server
	addr     net.Addr
	done     chan struct{}
	inflight sync.WaitGroup
}

// New creates a stopped adapter.
func New(cfg config.SMTPConfig, loopback Loopback, recorder Recorder) *Adapter {
	return &Adapter{
		cfg:      cfg,
		loopback: loopback,
		recorder: recorder,
	}
}

// Name returns the listener name.
func (a *Adapter) Name() string {
	return Name
}

// Addr returns the bound address while running.
func (a *Adapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.addr
}

// Start binds the listener and serves in the background.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyRunning
	}

	ctx = logger.WithName(context.WithoutCancel(ctx), Name)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", a.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.ListenAddress, err)
	}

	server := gosmtp.NewServer(&backend{
		ctx:       ctx,
		delimiter: a.cfg.Delimiter,
		username:  a.cfg.Username,
		password:  a.cfg.Password,
		loopback:  a.loopback,
		recorder:  a.recorder,
		inflight:  &a.inflight,
	})

	server.Addr = a.cfg.ListenAddress
	server.Domain = a.cfg.Domain
	server.ReadTimeout = ioTimeout
	server.WriteTimeout = ioTimeout
	server.MaxRecipients = maxRecipients
	server.MaxMessageBytes = a.cfg.MaxMessageBytes
	server.AllowInsecureAuth = true

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := server.Serve(lis); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
			logger.ErrorKV(ctx, "SMTP listener failed", "error", err)
		}
	}()

	a.server = server
	a.addr = lis.Addr()
	a.done = done

	logger.InfoKV(ctx, "SMTP listener started", "address", a.addr.String())

	return nil
}

// Stop closes the listener and waits for pending loopback calls.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	server, done := a.server, a.done
	a.server, a.addr, a.done = nil, nil, nil
	a.mu.Unlock()

	if server == nil {
		return nil
	}

	err := server.Close()
	<-done
	a.inflight.Wait()

	if err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
		return fmt.Errorf("close smtp listener: %w", err)
	}

	logger.Info(ctx, "SMTP listener stopped")

	return nil
}
