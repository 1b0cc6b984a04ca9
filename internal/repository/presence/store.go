package presence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	domain "github.com/oshokin/camera-funnel/internal/domain/camera"
	"github.com/oshokin/camera-funnel/internal/logger"
)

// Store serves the presence policy from memory and keeps it in sync with the repository.
type Store struct {
	// repo is the persistent source of truth.
	repo Repository
	// state is the last successfully loaded policy.
	state *domain.Presence
	// mu protects state.
	mu sync.RWMutex
}

// NewStore loads the policy once. A missing or blank file means nobody is at home.
func NewStore(ctx context.Context, repo Repository) (*Store, error) {
	s := &Store{
		repo:  repo,
		state: domain.NewPresence(false),
	}

	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrEmpty) {
		return nil, err
	}

	return s, nil
}

// Presence returns a copy of the current policy.
func (s *Store) Presence(_ context.Context) (*domain.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone(), nil
}

// Refresh reloads the policy from the repository. The previous policy is kept on error.
func (s *Store) Refresh(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load presence: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	logger.DebugKV(ctx, "Presence policy loaded", "at_home", state.AtHome, "excluded", state.Excluded())

	return nil
}

// Set persists a new policy and applies it immediately.
func (s *Store) Set(ctx context.Context, presence *domain.Presence) error {
	if err := s.repo.Save(ctx, presence); err != nil {
		return fmt.Errorf("persist presence: %w", err)
	}

	s.mu.Lock()
	s.state = presence.Clone()
	s.mu.Unlock()

	return nil
}

// Watch refreshes the policy every time the file at path changes.
// It blocks until the context is canceled.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create presence watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	path = filepath.Clean(path)

	// Editors replace files atomically, so the directory is watched instead of the file.
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch presence directory: %w", err)
	}

	ctx = logger.WithName(ctx, "presence-watcher")
	logger.InfoKV(ctx, "Watching presence file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			if err := s.Refresh(ctx); err != nil {
				logger.WarnKV(ctx, "Presence refresh failed, keeping previous policy", "error", err)

				continue
			}

			logger.InfoKV(ctx, "Presence policy reloaded", "op", event.Op.String())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Presence watcher error", "error", err)
		}
	}
}
