package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
)

func validConfig() *Config {
	return &Config{
		Cameras: []CameraConfig{
			{
				Name:             "Garage",
				RecordOnMovement: true,
				MotionTimeout:    10,
				MQTT: CameraMQTTTopic{
					MotionTopic:      "cam/Garage",
					MotionResetTopic: "cam/Garage/reset",
				},
			},
			{
				Name: "Porch",
				MQTT: CameraMQTTTopic{DoorbellTopic: "cam/Porch/bell"},
			},
		},
	}
}

// TestValidate_Defaults checks that missing values are filled in.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultHTTPAddress, cfg.HTTP.ListenAddress)
	require.Equal(t, DefaultPresenceFilename, cfg.PresenceFile)
	require.Equal(t, DefaultJournalFilename, cfg.JournalFile)
	require.Equal(t, DefaultSMTPDelimiter, cfg.SMTP.Delimiter)
	require.Equal(t, "http://127.0.0.1:8181", cfg.SMTP.LoopbackURL)
	require.Equal(t, camera.DefaultMotionMessage, cfg.Cameras[0].MQTT.MotionMessage)
	require.Equal(t, camera.DefaultMotionResetMessage, cfg.Cameras[0].MQTT.MotionResetMessage)
}

// TestValidate_Errors covers the rejected configurations.
func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
	require.ErrorIs(t, Validate(new(Config)), errNoCameras)

	cfg := validConfig()
	cfg.Cameras[1].Name = "  "
	require.ErrorIs(t, Validate(cfg), errCameraNameRequired)

	cfg = validConfig()
	cfg.Cameras[1].Name = "Garage"
	require.ErrorIs(t, Validate(cfg), errDuplicateCamera)

	cfg = validConfig()
	cfg.Cameras[1].MQTT.DoorbellTopic = "cam/Garage"
	require.ErrorIs(t, Validate(cfg), errDuplicateTopic)

	cfg = validConfig()
	cfg.MQTT.Enabled = true
	require.ErrorIs(t, Validate(cfg), errBrokerRequired)

	cfg = validConfig()
	cfg.HTTP.ListenAddress = "no-port"
	require.Error(t, Validate(cfg))

	cfg = validConfig()
	cfg.SMTP.Delimiter = "   "
	require.ErrorIs(t, Validate(cfg), errEmptyDelimiter)

	cfg = validConfig()
	cfg.LogFormat = "logfmt"
	require.ErrorIs(t, Validate(cfg), errUnknownLogFormat)
}

// TestTopicMappings checks how camera topics turn into mapping entries.
func TestTopicMappings(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, Validate(cfg))

	mappings, err := cfg.TopicMappings()
	require.NoError(t, err)
	require.Len(t, mappings, 3)

	require.Equal(t, camera.TopicMapping{
		Camera:             "Garage",
		Motion:             true,
		MotionMessage:      "ON",
		MotionResetMessage: "OFF",
	}, mappings["cam/Garage"])

	require.True(t, mappings["cam/Garage/reset"].Reset)
	require.True(t, mappings["cam/Garage/reset"].Motion)

	require.False(t, mappings["cam/Porch/bell"].Motion)
	require.Equal(t, "Porch", mappings["cam/Porch/bell"].Camera)
}

// TestCameraList converts YAML cameras into domain configs.
func TestCameraList(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	list := cfg.CameraList()

	require.Len(t, list, 2)
	require.Equal(t, &camera.Config{Name: "Garage", RecordOnMovement: true, MotionTimeout: 10}, list[0])
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := validConfig()
	cfg.HTTP.ListenAddress = "127.0.0.1:9000"
	cfg.SMTP.Delimiter = "_"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", loaded.HTTP.ListenAddress)
	require.Equal(t, "_", loaded.SMTP.Delimiter)
	require.Equal(t, "http://127.0.0.1:9000", loaded.SMTP.LoopbackURL)
	require.Len(t, loaded.Cameras, 2)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
