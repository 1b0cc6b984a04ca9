package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/camera-funnel/internal/domain/camera"
)

// Config holds every setting of the camera-funnel process.
type Config struct {
	// HTTP configures the trigger endpoint.
	HTTP HTTPConfig `yaml:"http"`
	// MQTT configures the broker subscription.
	MQTT MQTTConfig `yaml:"mqtt"`
	// SMTP configures the inbound mail listener.
	SMTP SMTPConfig `yaml:"smtp"`
	// Admin configures the operational HTTP listener.
	Admin AdminConfig `yaml:"admin"`
	// HealthAddress is the gRPC health service address; empty disables it.
	HealthAddress string `yaml:"health_addr"`
	// PresenceFile is the YAML file holding the at-home policy.
	PresenceFile string `yaml:"presence_file"`
	// JournalFile is the sqlite database recording forwarded events.
	JournalFile string `yaml:"journal_file"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// LogFormat is "console" (default) or "json".
	LogFormat string `yaml:"log_format"`
	// Cameras lists every camera known to the registry.
	Cameras []CameraConfig `yaml:"cameras"`
}

// HTTPConfig configures the HTTP trigger adapter.
type HTTPConfig struct {
	ListenAddress string        `yaml:"listen_addr"`
	Timeout       time.Duration `yaml:"timeout"`
}

// MQTTConfig configures the MQTT adapter.
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// SMTPConfig configures the SMTP adapter.
type SMTPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_addr"`
	Domain        string `yaml:"domain"`
	// Username and Password enable AUTH PLAIN checking when both are set.
	// Authentication stays optional for clients either way.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Delimiter is replaced with spaces in the recipient local part.
	Delimiter string `yaml:"delimiter"`
	// LoopbackURL is the base URL of the HTTP adapter; derived from HTTP.ListenAddress when empty.
	LoopbackURL     string        `yaml:"loopback_url"`
	LoopbackTimeout time.Duration `yaml:"loopback_timeout"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
}

// AdminConfig configures the operational HTTP listener; empty address disables it.
type AdminConfig struct {
	ListenAddress string `yaml:"listen_addr"`
}

// CameraConfig is the YAML shape of one camera.
type CameraConfig struct {
	Name             string          `yaml:"name"`
	RecordOnMovement bool            `yaml:"record_on_movement"`
	MotionTimeout    int             `yaml:"motion_timeout"`
	MQTT             CameraMQTTTopic `yaml:"mqtt"`
}

// CameraMQTTTopic lists the MQTT topics of one camera.
type CameraMQTTTopic struct {
	MotionTopic        string `yaml:"motion_topic"`
	MotionResetTopic   string `yaml:"motion_reset_topic"`
	DoorbellTopic      string `yaml:"doorbell_topic"`
	MotionMessage      string `yaml:"motion_message"`
	MotionResetMessage string `yaml:"motion_reset_message"`
}

const (
	// DefaultConfigFilename is the default filename for funnel settings.
	DefaultConfigFilename = "camera-funnel.yaml"
	// DefaultPresenceFilename is the default presence policy file.
	DefaultPresenceFilename = "camera-funnel-presence.yaml"
	// DefaultJournalFilename is the default sqlite journal.
	DefaultJournalFilename = "camera-funnel-journal.db"
	// DefaultHTTPAddress is the default trigger endpoint address.
	DefaultHTTPAddress = ":8181"
	// DefaultTimeout bounds HTTP requests and the SMTP loopback call.
	DefaultTimeout = 10 * time.Second
	// DefaultMQTTConnectTimeout bounds the initial broker connection.
	DefaultMQTTConnectTimeout = 10 * time.Second
	// DefaultMQTTClientID identifies the funnel at the broker.
	DefaultMQTTClientID = "camera-funnel"
	// DefaultSMTPAddress is the default mail listener address.
	DefaultSMTPAddress = ":2727"
	// DefaultSMTPDomain is announced in the SMTP greeting.
	DefaultSMTPDomain = "localhost"
	// DefaultSMTPDelimiter separates words of the camera name in the recipient.
	DefaultSMTPDelimiter = "+"
	// DefaultMaxMessageBytes caps accepted mail size.
	DefaultMaxMessageBytes = 1 << 20
	// DefaultFilePermissions is the permission for files written by the funnel.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoCameras is returned when the camera list is empty.
	errNoCameras = errors.New("at least one camera must be configured")
	// errCameraNameRequired is returned for a camera without a name.
	errCameraNameRequired = errors.New("camera name must be provided")
	// errDuplicateCamera is returned when two cameras share a name.
	errDuplicateCamera = errors.New("duplicate camera name")
	// errDuplicateTopic is returned when a topic is mapped twice.
	errDuplicateTopic = errors.New("duplicate mqtt topic")
	// errBrokerRequired is returned when MQTT is enabled without a broker.
	errBrokerRequired = errors.New("mqtt broker must be provided")
	// errUnknownLogFormat is returned for a log format other than console or json.
	errUnknownLogFormat = errors.New("unknown log format")
	// errEmptyDelimiter is returned for an empty SMTP delimiter after defaults.
	errEmptyDelimiter = errors.New("smtp delimiter must not be blank")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for consistency.
//
//nolint:cyclop // Flat list of independent checks.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.HTTP.ListenAddress == "" {
		cfg.HTTP.ListenAddress = DefaultHTTPAddress
	}

	if _, _, err := net.SplitHostPort(cfg.HTTP.ListenAddress); err != nil {
		return fmt.Errorf("invalid http listen address: %w", err)
	}

	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = DefaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: %q", errUnknownLogFormat, cfg.LogFormat)
	}

	if cfg.PresenceFile == "" {
		cfg.PresenceFile = DefaultPresenceFilename
	}

	if cfg.JournalFile == "" {
		cfg.JournalFile = DefaultJournalFilename
	}

	if err := validateMQTT(&cfg.MQTT); err != nil {
		return err
	}

	if err := validateSMTP(&cfg.SMTP, cfg.HTTP.ListenAddress); err != nil {
		return err
	}

	if len(cfg.Cameras) == 0 {
		return errNoCameras
	}

	seen := make(map[string]struct{}, len(cfg.Cameras))

	for i := range cfg.Cameras {
		c := &cfg.Cameras[i]

		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return fmt.Errorf("camera #%d: %w", i+1, errCameraNameRequired)
		}

		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: %q", errDuplicateCamera, c.Name)
		}

		seen[c.Name] = struct{}{}

		if c.MQTT.MotionMessage == "" {
			c.MQTT.MotionMessage = camera.DefaultMotionMessage
		}

		if c.MQTT.MotionResetMessage == "" {
			c.MQTT.MotionResetMessage = camera.DefaultMotionResetMessage
		}
	}

	if _, err := cfg.TopicMappings(); err != nil {
		return err
	}

	return nil
}

func validateMQTT(m *MQTTConfig) error {
	if m.ClientID == "" {
		m.ClientID = DefaultMQTTClientID
	}

	if m.ConnectTimeout <= 0 {
		m.ConnectTimeout = DefaultMQTTConnectTimeout
	}

	if !m.Enabled {
		return nil
	}

	if m.Broker == "" {
		return errBrokerRequired
	}

	if _, err := url.Parse(m.Broker); err != nil {
		return fmt.Errorf("invalid mqtt broker: %w", err)
	}

	return nil
}

func validateSMTP(s *SMTPConfig, httpAddress string) error {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultSMTPAddress
	}

	if s.Domain == "" {
		s.Domain = DefaultSMTPDomain
	}

	if s.Delimiter == "" {
		s.Delimiter = DefaultSMTPDelimiter
	}

	if strings.TrimSpace(s.Delimiter) == "" {
		return errEmptyDelimiter
	}

	if s.LoopbackTimeout <= 0 {
		s.LoopbackTimeout = DefaultTimeout
	}

	if s.MaxMessageBytes <= 0 {
		s.MaxMessageBytes = DefaultMaxMessageBytes
	}

	if s.LoopbackURL == "" {
		s.LoopbackURL = loopbackURL(httpAddress)
	}

	if _, err := url.ParseRequestURI(s.LoopbackURL); err != nil {
		return fmt.Errorf("invalid smtp loopback url: %w", err)
	}

	return nil
}

// loopbackURL turns a listen address such as ":8181" into "http://127.0.0.1:8181".
func loopbackURL(listenAddress string) string {
	host, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		return "http://" + listenAddress
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return "http://" + net.JoinHostPort(host, port)
}

// CameraList converts the YAML cameras into domain configs.
func (c *Config) CameraList() []*camera.Config {
	result := make([]*camera.Config, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		result = append(result, &camera.Config{
			Name:             cam.Name,
			RecordOnMovement: cam.RecordOnMovement,
			MotionTimeout:    cam.MotionTimeout,
		})
	}

	return result
}

// TopicMappings derives the MQTT topic table from the camera list.
// A topic may be mapped only once across all cameras.
func (c *Config) TopicMappings() (map[string]camera.TopicMapping, error) {
	mappings := make(map[string]camera.TopicMapping)

	add := func(topic string, mapping camera.TopicMapping) error {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return nil
		}

		if existing, ok := mappings[topic]; ok {
			return fmt.Errorf("%w: %q (cameras %q and %q)", errDuplicateTopic, topic, existing.Camera, mapping.Camera)
		}

		mappings[topic] = mapping

		return nil
	}

	for _, cam := range c.Cameras {
		base := camera.TopicMapping{
			Camera:             cam.Name,
			MotionMessage:      cam.MQTT.MotionMessage,
			MotionResetMessage: cam.MQTT.MotionResetMessage,
		}

		motion := base
		motion.Motion = true

		reset := base
		reset.Motion = true
		reset.Reset = true

		if err := add(cam.MQTT.MotionTopic, motion); err != nil {
			return nil, err
		}

		if err := add(cam.MQTT.MotionResetTopic, reset); err != nil {
			return nil, err
		}

		if err := add(cam.MQTT.DoorbellTopic, base); err != nil {
			return nil, err
		}
	}

	return mappings, nil
}
