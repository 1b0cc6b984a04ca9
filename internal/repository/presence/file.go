package presence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/camera-funnel/internal/config"
	domain "github.com/oshokin/camera-funnel/internal/domain/camera"
)

// Repository defines persistence operations for the presence policy.
type Repository interface {
	Load(ctx context.Context) (*domain.Presence, error)
	Save(ctx context.Context, presence *domain.Presence) error
}

// FileRepository persists the presence policy to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the YAML file.
	path string
	// mu protects concurrent access to the file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the presence file does not exist yet.
	ErrNotFound = errors.New("presence not found")
	// ErrEmpty is returned for a blank file, usually one caught mid-write.
	ErrEmpty = errors.New("presence file is empty")
)

// document is the on-disk shape of the policy.
type document struct {
	AtHome          bool     `yaml:"at_home"`
	ExcludedCameras []string `yaml:"excluded_cameras"`
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the cleaned file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the policy from disk.
func (r *FileRepository) Load(_ context.Context) (*domain.Presence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read presence file: %w", err)
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return nil, ErrEmpty
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode presence file: %w", err)
	}

	return domain.NewPresence(doc.AtHome, doc.ExcludedCameras...), nil
}

// Save writes the policy to a temporary file and renames it over the target,
// so readers see either the old policy or the new one.
func (r *FileRepository) Save(_ context.Context, presence *domain.Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := document{
		AtHome:          presence.AtHome,
		ExcludedCameras: presence.Excluded(),
	}

	sort.Strings(doc.ExcludedCameras)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode presence: %w", err)
	}

	return writeAtomic(r.path, data)
}

func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary presence file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write presence file: %w", err)
	}

	if err = tmp.Chmod(config.DefaultFilePermissions); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("chmod presence file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close presence file: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace presence file: %w", err)
	}

	return nil
}
