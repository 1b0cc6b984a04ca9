package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/camera-funnel/internal/config"
	"github.com/oshokin/camera-funnel/internal/domain/trigger"
	"github.com/oshokin/camera-funnel/internal/logger"
	"github.com/oshokin/camera-funnel/internal/normalize"
)

const (
	// Name identifies the listener.
	Name = "mqtt"

	subscribeQoS      = 0
	disconnectQuiesce = 250 // milliseconds
	queueSize         = 64
)

var (
	// ErrAlreadyRunning is returned by Start on a running adapter.
	ErrAlreadyRunning = errors.New("mqtt adapter is already running")
	// ErrConnectTimeout is returned when the broker does not answer in time.
	ErrConnectTimeout = errors.New("mqtt connect timed out")
)

// Topics exposes the topic table.
type Topics interface {
	normalize.TopicLookup
	Topics() []string
}

// Resolver resolves a normalized trigger.
type Resolver interface {
	Resolve(ctx context.Context, t trigger.Trigger) trigger.Result
}

// Recorder observes outcomes decided before the resolver is reached.
type Recorder interface {
	Observe(channel trigger.Channel, outcome trigger.Outcome)
}

type message struct {
	topic   string
	payload []byte
}

// Adapter owns one broker connection.
type Adapter struct {
	cfg      config.MQTTConfig
	topics   Topics
	resolver Resolver
	recorder Recorder

	mu     sync.Mutex
	client paho.Client
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a stopped adapter.
func New(cfg config.MQTTConfig, topics Topics, resolver Resolver, recorder Recorder) *Adapter {
	return &Adapter{
		cfg:      cfg,
		topics:   topics,
		resolver: resolver,
		recorder: recorder,
	}
}

// Name returns the listener name.
func (a *Adapter) Name() string {
	return Name
}

// Start connects to the broker and starts the consumer.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return ErrAlreadyRunning
	}

	ctx = logger.WithName(context.WithoutCancel(ctx), Name)

	messages := make(chan message, queueSize)
	done := make(chan struct{})
	a.consume(ctx, messages, done)

	onMessage := func(_ paho.Client, msg paho.Message) {
		enqueue(messages, done, message{topic: msg.Topic(), payload: msg.Payload()})
	}

	client := paho.NewClient(a.clientOptions(ctx, onMessage))

	timeout := a.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = config.DefaultMQTTConnectTimeout
	}

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		a.drain(done)

		return fmt.Errorf("%w: broker %s", ErrConnectTimeout, a.cfg.Broker)
	}

	if err := token.Error(); err != nil {
		a.drain(done)

		return fmt.Errorf("connect to %s: %w", a.cfg.Broker, err)
	}

	a.client = client
	a.done = done

	return nil
}

// Stop disconnects and drains the consumer. Stopping a stopped adapter is a no-op.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	client, done := a.client, a.done
	a.client, a.done = nil, nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}

	client.Disconnect(disconnectQuiesce)
	a.drain(done)

	logger.Info(ctx, "MQTT adapter stopped")

	return nil
}

func (a *Adapter) clientOptions(ctx context.Context, onMessage paho.MessageHandler) *paho.ClientOptions {
	clientID := a.cfg.ClientID
	if clientID == "" {
		clientID = config.DefaultMQTTClientID
	}

	opts := paho.NewClientOptions().
		AddBroker(a.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetCleanSession(true).
		SetOnConnectHandler(func(client paho.Client) {
			a.subscribe(ctx, client, onMessage)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.WarnKV(ctx, "MQTT connection lost", "error", err)
		})

	if a.cfg.Username != "" {
		opts.SetUsername(a.cfg.Username)
		opts.SetPassword(a.cfg.Password)
	}

	return opts
}

// subscribe runs on every (re)connect.
func (a *Adapter) subscribe(ctx context.Context, client paho.Client, onMessage paho.MessageHandler) {
	filters := SubscriptionFilters(a.topics.Topics())
	if len(filters) == 0 {
		logger.Warn(ctx, "No MQTT topics configured")

		return
	}

	token := client.SubscribeMultiple(filters, onMessage)
	if !token.WaitTimeout(config.DefaultMQTTConnectTimeout) {
		logger.Error(ctx, "MQTT subscribe timed out")

		return
	}

	if err := token.Error(); err != nil {
		logger.ErrorKV(ctx, "MQTT subscribe failed", "error", err)

		return
	}

	logger.InfoKV(ctx, "MQTT subscribed", "broker", a.cfg.Broker, "topics", len(filters))
}

// SubscriptionFilters maps every configured topic to its "<topic>/#" filter.
func SubscriptionFilters(topics []string) map[string]byte {
	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic+"/#"] = subscribeQoS
	}

	return filters
}

// enqueue hands a message to the consumer, giving up once it is stopped.
func enqueue(messages chan<- message, done <-chan struct{}, m message) {
	select {
	case messages <- m:
	case <-done:
	}
}

// consume processes messages one at a time in delivery order.
func (a *Adapter) consume(ctx context.Context, messages <-chan message, done <-chan struct{}) {
	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		for {
			select {
			case m := <-messages:
				a.handle(ctx, m.topic, m.payload)
			case <-done:
				return
			}
		}
	}()
}

func (a *Adapter) drain(done chan struct{}) {
	close(done)
	a.wg.Wait()
}

// handle normalizes and resolves one message and logs the outcome.
func (a *Adapter) handle(ctx context.Context, topic string, payload []byte) trigger.Result {
	startedAt := time.Now()

	t, err := normalize.MQTT(a.topics, topic, payload)
	if err != nil {
		res := trigger.Malformed("%s", err.Error())
		logger.WarnKV(ctx, "Rejected MQTT message", "topic", topic, "payload", string(payload), "error", err)

		if a.recorder != nil {
			a.recorder.Observe(trigger.ChannelMQTT, res.Outcome)
		}

		return res
	}

	res := a.resolver.Resolve(ctx, t)

	kvs := []any{
		"topic", topic,
		"trigger", t.String(),
		"outcome", res.Outcome.String(),
		"message", res.Message,
		"duration", time.Since(startedAt),
	}

	if res.Error {
		logger.WarnKV(ctx, "MQTT trigger failed", kvs...)
	} else {
		logger.InfoKV(ctx, "MQTT trigger resolved", kvs...)
	}

	return res
}
