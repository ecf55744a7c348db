package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vitalvas/minimqtt"
	"gopkg.in/yaml.v3"
)

// Config is the command configuration file.
type Config struct {
	Broker        BrokerConfig         `yaml:"broker"`
	Auth          AuthConfig           `yaml:"auth"`
	Will          *WillConfig          `yaml:"will,omitempty"`
	Timeouts      TimeoutConfig        `yaml:"timeouts"`
	Reconnect     ReconnectConfig      `yaml:"reconnect"`
	Session       SessionConfig        `yaml:"session"`
	Logging       LoggingConfig        `yaml:"logging"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// BrokerConfig selects the broker and how to reach it.
type BrokerConfig struct {
	// Server is a host name or URL, e.g. "mqtts://broker:8883" or "ws://broker/mqtt".
	Server    string    `yaml:"server"`
	Port      int       `yaml:"port,omitempty"`
	Secure    bool      `yaml:"secure"`
	ClientID  string    `yaml:"client_id"`
	KeepAlive uint16    `yaml:"keep_alive"`
	Proxy     string    `yaml:"proxy,omitempty"`
	TLS       TLSConfig `yaml:"tls"`
}

// TLSConfig holds certificate settings for secure transports.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// AuthConfig contains the broker credentials.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WillConfig is the last will sent in CONNECT.
type WillConfig struct {
	Topic   string `yaml:"topic"`
	Payload string `yaml:"payload"`
	QoS     byte   `yaml:"qos"`
	Retain  bool   `yaml:"retain"`
}

// TimeoutConfig bounds network operations. Zero values keep the client defaults.
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
	Write   time.Duration `yaml:"write"`
	Ack     time.Duration `yaml:"ack"`
	Poll    time.Duration `yaml:"poll"`
}

// ReconnectConfig paces reconnection in watch mode.
type ReconnectConfig struct {
	Backoff     time.Duration `yaml:"backoff"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// SessionConfig selects where subscriptions are persisted.
type SessionConfig struct {
	// Store is "memory" or "badger". Empty disables persistence.
	Store string `yaml:"store"`
	Dir   string `yaml:"dir"`
}

// LoggingConfig configures the logrus output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives the log when set; otherwise stderr is used.
	File string `yaml:"file,omitempty"`
}

// SubscriptionConfig is a topic filter subscribed by sub and watch.
type SubscriptionConfig struct {
	Topic string `yaml:"topic"`
	QoS   byte   `yaml:"qos"`
}

func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Server:    "localhost",
			KeepAlive: 60,
		},
		Reconnect: ReconnectConfig{
			Backoff:     time.Second,
			MaxAttempts: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML file over the defaults and applies environment
// overrides. An empty path uses the defaults only.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies MINIMQTT_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINIMQTT_SERVER"); v != "" {
		cfg.Broker.Server = v
	}
	if v := os.Getenv("MINIMQTT_CLIENT_ID"); v != "" {
		cfg.Broker.ClientID = v
	}
	if v := os.Getenv("MINIMQTT_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("MINIMQTT_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
}

// Validate checks settings the client cannot check itself.
func (c *Config) Validate() error {
	if c.Broker.Server == "" {
		return errors.New("broker.server is required")
	}

	switch c.Session.Store {
	case "", "memory":
	case "badger":
		if c.Session.Dir == "" {
			return errors.New("session.dir is required for the badger store")
		}
		if c.Broker.ClientID == "" {
			return errors.New("broker.client_id is required for a persistent session store")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	if _, err := minimqtt.ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}

	for _, sub := range c.Subscriptions {
		if err := minimqtt.ValidateTopicFilter(sub.Topic); err != nil {
			return fmt.Errorf("subscription %q: %w", sub.Topic, err)
		}
	}

	return nil
}

// ClientOptions translates the configuration to client options.
func (c *Config) ClientOptions() ([]minimqtt.Option, error) {
	opts := []minimqtt.Option{
		minimqtt.WithSecure(c.Broker.Secure),
		minimqtt.WithKeepAlive(c.Broker.KeepAlive),
	}

	if c.Broker.Port != 0 {
		opts = append(opts, minimqtt.WithPort(c.Broker.Port))
	}
	if c.Broker.ClientID != "" {
		opts = append(opts, minimqtt.WithClientID(c.Broker.ClientID))
	}
	if c.Broker.Proxy != "" {
		opts = append(opts, minimqtt.WithProxy(c.Broker.Proxy))
	}
	if c.Auth.Username != "" || c.Auth.Password != "" {
		opts = append(opts, minimqtt.WithCredentials(c.Auth.Username, c.Auth.Password))
	}
	if c.Will != nil {
		opts = append(opts, minimqtt.WithWill(minimqtt.Will{
			Topic:   c.Will.Topic,
			Payload: []byte(c.Will.Payload),
			QoS:     c.Will.QoS,
			Retain:  c.Will.Retain,
		}))
	}

	if c.Broker.TLS.Enabled {
		tlsConfig, err := c.Broker.TLS.load()
		if err != nil {
			return nil, err
		}
		opts = append(opts, minimqtt.WithTLS(tlsConfig))
	}

	t := c.Timeouts
	if t.Connect > 0 {
		opts = append(opts, minimqtt.WithConnectTimeout(t.Connect))
	}
	if t.Read > 0 {
		opts = append(opts, minimqtt.WithReadTimeout(t.Read))
	}
	if t.Write > 0 {
		opts = append(opts, minimqtt.WithWriteTimeout(t.Write))
	}
	if t.Ack > 0 {
		opts = append(opts, minimqtt.WithAckTimeout(t.Ack))
	}
	if t.Poll > 0 {
		opts = append(opts, minimqtt.WithPollInterval(t.Poll))
	}
	if c.Reconnect.Backoff > 0 {
		opts = append(opts, minimqtt.WithReconnectBackoff(c.Reconnect.Backoff))
	}

	return opts, nil
}

func (t TLSConfig) load() (*tls.Config, error) {
	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.InsecureSkipVerify, //nolint:gosec // opt-in for test brokers
	}

	if t.CAFile != "" {
		pem, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", t.CAFile)
		}
		config.RootCAs = pool
	}

	if t.CertFile != "" || t.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// subscriptions returns the configured subscriptions as client values.
func (c *Config) subscriptions() []minimqtt.Subscription {
	subs := make([]minimqtt.Subscription, 0, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		subs = append(subs, minimqtt.Subscription{Topic: s.Topic, QoS: s.QoS})
	}
	return subs
}
