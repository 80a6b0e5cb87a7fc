package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"domo/internal/domain"
)

type Config struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// DeviceState is the last payload a device reported on its state topic.
type DeviceState struct {
	DeviceKey string
	Payload   string
	SeenAt    time.Time
}

// Publisher pushes interpreted commands onto per-device command topics and
// keeps a passive view of device-reported state. It never blocks the
// interpretation path on broker round-trips beyond the publish ack.
type Publisher struct {
	cfg    Config
	client paho.Client
	logger *slog.Logger

	stateMu sync.RWMutex
	state   map[string]DeviceState
}

func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "domo"
	}
	return &Publisher{
		cfg:    cfg,
		logger: logger,
		state:  make(map[string]DeviceState),
	}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.cfg.BrokerURL != ""
}

func (p *Publisher) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(p.cfg.BrokerURL).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.logger.Error("mqtt connection lost", "error", err)
	})

	p.client = paho.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if token := p.client.Subscribe(TopicDeviceState(p.cfg.TopicPrefix), 1, p.handleState); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	go func() {
		<-ctx.Done()
		p.client.Disconnect(100)
	}()

	return nil
}

// PublishCommand pushes one command with QoS 1. The publish ack is bounded by
// the context so a dead broker degrades the request instead of hanging it.
func (p *Publisher) PublishCommand(ctx context.Context, cmd domain.DeviceCommand) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	topic := TopicDeviceCommand(p.cfg.TopicPrefix, cmd.DeviceKey)
	token := p.client.Publish(topic, 1, false, body)

	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	if err := token.Error(); err != nil {
		return err
	}
	p.logger.Info("command published", "topic", topic, "request_id", cmd.RequestID, "action", cmd.Action)
	return nil
}

func (p *Publisher) handleState(_ paho.Client, msg paho.Message) {
	deviceKey, err := ParseDeviceKey(msg.Topic(), p.cfg.TopicPrefix)
	if err != nil {
		p.logger.Warn("skip invalid state topic", "topic", msg.Topic(), "error", err)
		return
	}

	p.stateMu.Lock()
	p.state[deviceKey] = DeviceState{
		DeviceKey: deviceKey,
		Payload:   strings.TrimSpace(string(msg.Payload())),
		SeenAt:    time.Now(),
	}
	p.stateMu.Unlock()
}

// LastState returns the most recent state a device reported, if any.
func (p *Publisher) LastState(deviceKey string) (DeviceState, bool) {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	st, ok := p.state[deviceKey]
	return st, ok
}
