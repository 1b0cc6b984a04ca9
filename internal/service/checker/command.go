package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/camera-funnel/internal/api/grpc/health"
	"github.com/oshokin/camera-funnel/internal/config"
	"github.com/oshokin/camera-funnel/internal/logger"
	"github.com/oshokin/camera-funnel/internal/service/funnel"
)

// Options controls the health check command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address overrides the configured gRPC health address.
	Address string
	// Timeout bounds every check.
	Timeout time.Duration
	// Out receives one line per listener.
	Out io.Writer
}

var (
	// ErrNoHealthAddress is returned when neither flag nor settings name an address.
	ErrNoHealthAddress = errors.New("no health address configured")
	// ErrNotServing is returned when at least one listener is down.
	ErrNotServing = errors.New("not every listener is serving")
)

// Run asks a running funnel for the status of every configured listener.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "checker")

	// Load settings to learn which listeners are expected.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Command line address overrides the configured one.
	address := cfg.HealthAddress
	if opts.Address != "" {
		address = opts.Address
	}

	if address == "" {
		return ErrNoHealthAddress
	}

	client, err := health.Dial(ctx, address, health.WithCallTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	down := 0

	for _, name := range funnel.ListenerNames(cfg) {
		status, err := client.Status(ctx, name)
		if err != nil {
			logger.WarnKV(ctx, "Health check failed", "listener", name, "error", err)

			status = healthpb.HealthCheckResponse_UNKNOWN
		}

		if status != healthpb.HealthCheckResponse_SERVING {
			down++
		}

		if opts.Out != nil {
			if _, err := fmt.Fprintf(opts.Out, "%s: %s\n", name, status.String()); err != nil {
				return fmt.Errorf("write status: %w", err)
			}
		}
	}

	if down > 0 {
		return fmt.Errorf("%w: %d down", ErrNotServing, down)
	}

	return nil
}
