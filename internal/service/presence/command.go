package presence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/oshokin/camera-funnel/internal/config"
	domain "github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/logger"
	repo "github.com/oshokin/camera-funnel/internal/repository/presence"
)

// ErrUnknownCamera is returned when an excluded camera is not configured.
var ErrUnknownCamera = errors.New("unknown camera")

// Options configures the presence command.
type Options struct {
	// ConfigPath to the YAML settings file.
	ConfigPath string
	// AtHome is the desired at-home flag for Set.
	AtHome bool
	// Exclude lists cameras that keep triggering while at home.
	Exclude []string
	// Out receives the printed policy.
	Out io.Writer
}

// Show prints the current policy.
func Show(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "presence")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store := repo.NewFileRepository(cfg.PresenceFile)

	current, err := store.Load(ctx)

	switch {
	case errors.Is(err, repo.ErrNotFound):
		current = domain.NewPresence(false)
	case err != nil:
		return fmt.Errorf("load presence: %w", err)
	}

	return render(opts.Out, store.Path(), current)
}

// Set validates and writes a new policy. A running funnel picks it up from the file.
func Set(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "presence")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	known := make(map[string]struct{}, len(cfg.Cameras))
	for _, cam := range cfg.Cameras {
		known[cam.Name] = struct{}{}
	}

	excluded := make([]string, 0, len(opts.Exclude))

	for _, name := range opts.Exclude {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, ok := known[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCamera, name)
		}

		excluded = append(excluded, name)
	}

	store := repo.NewFileRepository(cfg.PresenceFile)
	policy := domain.NewPresence(opts.AtHome, excluded...)

	if err = store.Save(ctx, policy); err != nil {
		return fmt.Errorf("save presence: %w", err)
	}

	logger.InfoKV(ctx, "Presence policy written", "path", store.Path(), "at_home", policy.AtHome, "excluded", len(excluded))

	return render(opts.Out, store.Path(), policy)
}

func render(out io.Writer, path string, p *domain.Presence) error {
	if out == nil {
		return nil
	}

	excluded := p.Excluded()
	sort.Strings(excluded)

	list := "none"
	if len(excluded) > 0 {
		list = strings.Join(excluded, ", ")
	}

	_, err := fmt.Fprintf(out, "file: %s\nat home: %t\nexcluded cameras: %s\n", path, p.AtHome, list)

	return err
}
