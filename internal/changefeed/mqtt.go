package changefeed

import (
	"errors"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// MQTTOptions configures the broker connection for MQTTSource.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// MQTTSource treats every message on a topic as a change notification.
type MQTTSource struct {
	opts      MQTTOptions
	logger    *slog.Logger
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewMQTTSource(opts MQTTOptions, logger *slog.Logger) *MQTTSource {
	if opts.Topic == "" {
		opts.Topic = "iot/changes/#"
	}
	if opts.ClientID == "" {
		opts.ClientID = "iot-dashboard"
	}
	return &MQTTSource{opts: opts, logger: logger, newClient: mqtt.NewClient}
}

func (m *MQTTSource) Subscribe(onChange func()) (devicedomain.Subscription, error) {
	if m.opts.Broker == "" {
		return nil, errors.New("mqtt broker is empty")
	}
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		m.logger.Debug("mqtt change notification", "topic", msg.Topic())
		onChange()
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(m.opts.Broker).
		SetClientID(m.opts.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)
	if m.opts.Username != "" {
		clientOpts.SetUsername(m.opts.Username)
		clientOpts.SetPassword(m.opts.Password)
	}
	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.logger.Warn("mqtt connection lost", "err", err)
	}
	clientOpts.OnConnect = func(c mqtt.Client) {
		m.logger.Info("mqtt connected", "topic", m.opts.Topic)
		if token := c.Subscribe(m.opts.Topic, 1, handler); token.Wait() && token.Error() != nil {
			m.logger.Error("mqtt subscribe failed", "topic", m.opts.Topic, "err", token.Error())
		}
	}

	client := m.newClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		// Connect keeps retrying in the background; notifications start once it succeeds.
		m.logger.Warn("mqtt connect still pending", "broker", m.opts.Broker)
	} else if err := token.Error(); err != nil {
		return nil, err
	}

	return newSubscription(func() {
		if client.IsConnected() {
			client.Unsubscribe(m.opts.Topic).WaitTimeout(mqttConnectTimeout)
		}
		client.Disconnect(mqttQuiesceMillis)
	}), nil
}
