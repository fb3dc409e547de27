// Package mqtt delivers push notifications over an MQTT broker. Each helper
// subscribes to their own topic; delivery is at-most-once from the dispatch
// core's perspective.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/helperlink/dispatch/core/notify"
	"github.com/helperlink/dispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT channel. When
// Enabled is false the service falls back to log-only delivery.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	QoS         byte   `json:"qos"`
	UseTLS      bool   `json:"use_tls"`
	ClientCert  string `json:"client_cert"`
	ClientKey   string `json:"client_key"`
	CABundle    string `json:"ca_bundle"`
	HelperTopic string `json:"helper_topic"` // printf pattern, default helpers/%s/requests
	UserTopic   string `json:"user_topic"`   // printf pattern, default users/%s/notifications
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "dispatchd"
	}
	if c.HelperTopic == "" {
		c.HelperTopic = "helpers/%s/requests"
	}
	if c.UserTopic == "" {
		c.UserTopic = "users/%s/notifications"
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Channel implements notify.Channel over Eclipse Paho.
type Channel struct {
	cli         pahoClient
	qos         byte
	helperTopic string
	userTopic   string
	logger      logger.Logger
}

// NewChannel connects to the MQTT broker.
func NewChannel(cfg Config) (*Channel, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-channel")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Channel{
		cli:         c,
		qos:         cfg.QoS,
		helperTopic: cfg.HelperTopic,
		userTopic:   cfg.UserTopic,
		logger:      log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func newTLSConfig(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CABundle != "" {
		ca, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, fmt.Errorf("invalid ca bundle %s", cfg.CABundle)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// PushToHelper publishes the payload on the helper's request topic.
func (c *Channel) PushToHelper(ctx context.Context, helperID string, p notify.Payload) error {
	return c.publish(ctx, fmt.Sprintf(c.helperTopic, helperID), p)
}

// PushToUser publishes the payload on the user's notification topic.
func (c *Channel) PushToUser(ctx context.Context, userID string, p notify.Payload) error {
	return c.publish(ctx, fmt.Sprintf(c.userTopic, userID), p)
}

func (c *Channel) publish(ctx context.Context, topic string, p notify.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	token := c.cli.Publish(topic, c.qos, false, body)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish to %s timed out", topic)
	}
}

// Close disconnects from the broker.
func (c *Channel) Close() {
	c.cli.Disconnect(250)
}
