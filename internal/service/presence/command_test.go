package presence

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/camera-funnel/internal/config"
	presencerepo "github.com/oshokin/camera-funnel/internal/repository/presence"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "camera-funnel.yaml")
	presencePath := filepath.Join(dir, "presence.yaml")

	require.NoError(t, config.Save(cfgPath, &config.Config{
		PresenceFile: presencePath,
		JournalFile:  filepath.Join(dir, "journal.db"),
		Cameras: []config.CameraConfig{
			{Name: "Garage", RecordOnMovement: true, MotionTimeout: 30},
			{Name: "Front Door", RecordOnMovement: true},
		},
	}))

	return cfgPath, presencePath
}

// TestShow_DefaultsWhenMissing prints the empty policy when no file exists yet.
func TestShow_DefaultsWhenMissing(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)

	var out bytes.Buffer
	require.NoError(t, Show(context.Background(), &Options{ConfigPath: cfgPath, Out: &out}))
	require.Contains(t, out.String(), "at home: false")
	require.Contains(t, out.String(), "excluded cameras: none")
}

// TestSet_WritesPolicy stores the flag and exclusions where the funnel reads them.
func TestSet_WritesPolicy(t *testing.T) {
	t.Parallel()

	cfgPath, presencePath := writeConfig(t)

	var out bytes.Buffer
	err := Set(context.Background(), &Options{
		ConfigPath: cfgPath,
		AtHome:     true,
		Exclude:    []string{"Front Door", " "},
		Out:        &out,
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), "excluded cameras: Front Door")

	stored, err := presencerepo.NewFileRepository(presencePath).Load(context.Background())
	require.NoError(t, err)
	require.True(t, stored.AtHome)
	require.True(t, stored.Suppresses("Garage"))
	require.False(t, stored.Suppresses("Front Door"))

	out.Reset()
	require.NoError(t, Show(context.Background(), &Options{ConfigPath: cfgPath, Out: &out}))
	require.Contains(t, out.String(), "at home: true")
}

// TestSet_UnknownCamera rejects exclusions of cameras that are not configured.
func TestSet_UnknownCamera(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)

	err := Set(context.Background(), &Options{ConfigPath: cfgPath, AtHome: true, Exclude: []string{"Attic"}})
	require.ErrorIs(t, err, ErrUnknownCamera)
}
