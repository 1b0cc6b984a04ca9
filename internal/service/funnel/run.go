package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/camera-funnel/internal/api/grpc/health"
	"github.com/oshokin/camera-funnel/internal/api/httpapi"
	"github.com/oshokin/camera-funnel/internal/api/mqtt"
	"github.com/oshokin/camera-funnel/internal/api/smtp"
	"github.com/oshokin/camera-funnel/internal/broadcast"
	"github.com/oshokin/camera-funnel/internal/config"
	"github.com/oshokin/camera-funnel/internal/logger"
	"github.com/oshokin/camera-funnel/internal/metrics"
	"github.com/oshokin/camera-funnel/internal/repository/camera"
	"github.com/oshokin/camera-funnel/internal/repository/journal"
	"github.com/oshokin/camera-funnel/internal/repository/presence"
	"github.com/oshokin/camera-funnel/internal/service/debounce"
)

const (
	// ListenerHTTP names the HTTP trigger listener.
	ListenerHTTP = "http"
	// ListenerAdmin names the operational HTTP listener.
	ListenerAdmin = "admin"

	shutdownTimeout = 10 * time.Second
)

var (
	// ErrNoListeners is returned when not a single listener could start.
	ErrNoListeners = errors.New("no listener could be started")
	// ErrUnknownLogLevel is returned for a level ParseLogLevel does not know.
	ErrUnknownLogLevel = errors.New("unknown log level")
)

// Options controls the camera-funnel process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// Ready, when set, receives the running supervisor once listeners are up.
	Ready func(*Supervisor)
}

// Run starts the funnel and blocks until the context is canceled.
//
//nolint:funlen // Linear wiring of every component.
func Run(ctx context.Context, opts *Options) error {
	// Load configuration first; everything else depends on it.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Command line level wins over the configured one.
	if err = configureLogging(settings, opts.LogLevel); err != nil {
		return err
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "camera-funnel")

	// Build the immutable camera and topic table.
	topics, err := settings.TopicMappings()
	if err != nil {
		return fmt.Errorf("build topic table: %w", err)
	}

	registry := camera.NewRegistry(settings.CameraList(), topics)

	// Load the at-home policy and follow edits of its file.
	presenceRepo := presence.NewFileRepository(settings.PresenceFile)

	store, err := presence.NewStore(ctx, presenceRepo)
	if err != nil {
		return fmt.Errorf("load presence: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	go func() {
		if err := store.Watch(watchCtx, presenceRepo.Path()); err != nil {
			logger.WarnKV(ctx, "Presence watcher stopped", "error", err)
		}
	}()

	// Open the event journal used as the persistent sink.
	events, err := journal.Open(ctx, settings.JournalFile)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		if err := events.Close(); err != nil {
			logger.WarnKV(ctx, "Journal close failed", "error", err)
		}
	}()

	hub := broadcast.NewHub()
	defer hub.Close()

	stats := metrics.New()

	// The resolver owns the per-camera debounce state and outlives the listeners.
	resolver := debounce.New(
		context.WithoutCancel(ctx),
		registry,
		store,
		debounce.Sinks{events, debounce.LogSink{}},
		debounce.WithNotifier(hub),
		debounce.WithRecorder(stats),
	)
	defer resolver.Close()

	sinks := []StatusSink{stats}

	var healthServer *health.Server
	if settings.HealthAddress != "" {
		healthServer = health.NewServer(settings.HealthAddress, ListenerNames(settings)...)
		sinks = append(sinks, healthServer)
	}

	supervisor := NewSupervisor(sinks...)
	addListeners(supervisor, settings, registry, resolver, stats, events, hub)

	if healthServer != nil {
		if err := healthServer.Start(ctx); err != nil {
			logger.ErrorKV(ctx, "Health server failed to start", "reason", DescribeListenError(err), "error", err)
		}
	}

	if started := supervisor.StartAll(ctx); started == 0 {
		stopHealth(ctx, healthServer)

		return ErrNoListeners
	}

	logger.InfoKV(ctx, "Camera funnel running", "cameras", len(registry.Names()), "listeners", supervisor.Statuses())

	if opts.Ready != nil {
		opts.Ready(supervisor)
	}

	<-ctx.Done()
	logger.Info(ctx, "Shutting down camera funnel")

	// Shutdown must outlive the canceled parent context.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := supervisor.StopAll(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "Listener shutdown incomplete", "error", err)
	}

	stopHealth(shutdownCtx, healthServer)
	logger.Info(ctx, "Camera funnel stopped")

	return nil
}

func addListeners(
	supervisor *Supervisor,
	settings *config.Config,
	registry *camera.Registry,
	resolver *debounce.Resolver,
	stats *metrics.Metrics,
	events *journal.Journal,
	hub *broadcast.Hub,
) {
	supervisor.Add(httpapi.NewListener(
		ListenerHTTP,
		settings.HTTP.ListenAddress,
		httpapi.NewTriggerAPI(resolver, stats).Handler(),
		settings.HTTP.Timeout,
	))

	if settings.MQTT.Enabled {
		supervisor.Add(mqtt.New(settings.MQTT, registry, resolver, stats))
	}

	if settings.SMTP.Enabled {
		loopback := smtp.NewHTTPLoopback(settings.SMTP.LoopbackURL, settings.SMTP.LoopbackTimeout)
		supervisor.Add(smtp.New(settings.SMTP, loopback, stats))
	}

	if settings.Admin.ListenAddress != "" {
		admin := httpapi.NewAdminAPI(resolver, events, supervisor, stats.Handler(), hub)

		// No write timeout: the websocket stream is long-lived.
		supervisor.Add(httpapi.NewListener(ListenerAdmin, settings.Admin.ListenAddress, admin.Handler(), 0))
	}
}

// ListenerNames lists the listeners the settings enable, in start order.
func ListenerNames(settings *config.Config) []string {
	names := []string{ListenerHTTP}

	if settings.MQTT.Enabled {
		names = append(names, mqtt.Name)
	}

	if settings.SMTP.Enabled {
		names = append(names, smtp.Name)
	}

	if settings.Admin.ListenAddress != "" {
		names = append(names, ListenerAdmin)
	}

	return names
}

func configureLogging(settings *config.Config, levelOverride string) error {
	value := settings.LogLevel
	if levelOverride != "" {
		value = levelOverride
	}

	level, ok := logger.ParseLogLevel(value)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, value)
	}

	format, err := logger.ParseFormat(settings.LogFormat)
	if err != nil {
		return err
	}

	logger.Configure(level, format)

	return nil
}

func stopHealth(ctx context.Context, s *health.Server) {
	if s == nil {
		return
	}

	if err := s.Stop(ctx); err != nil {
		logger.WarnKV(ctx, "Health server shutdown failed", "error", err)
	}
}
