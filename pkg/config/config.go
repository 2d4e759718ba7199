// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the hostlink CLI configuration from a YAML file, an
// optional .env file and HOSTLINK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
	"github.com/Thermoquad/hostlink/pkg/publish"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOSTLINK_"

// SerialConfig holds serial line settings.
type SerialConfig struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits string `yaml:"stop_bits"`
}

// WebSocketConfig holds settings for a serial bridge reached over WebSocket.
// The password is never stored in the file; see HOSTLINK_PASSWORD.
type WebSocketConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// PublishConfig lists the brokers status snapshots are forwarded to.
type PublishConfig struct {
	MQTT   *publish.MQTTConfig   `yaml:"mqtt,omitempty"`
	Valkey *publish.ValkeyConfig `yaml:"valkey,omitempty"`
	Kafka  *publish.KafkaConfig  `yaml:"kafka,omitempty"`
}

// Config is the complete CLI configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`

	Node     int           `yaml:"node"`
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`

	Listen  string        `yaml:"listen"`
	Publish PublishConfig `yaml:"publish"`
}

// DefaultConfig returns the configuration used when nothing else is given.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:     9600,
			DataBits: 7,
			Parity:   "even",
			StopBits: "2",
		},
		Timeout:  3 * time.Second,
		Interval: time.Second,
		Listen:   "127.0.0.1:8080",
	}
}

// DefaultPath returns ~/.hostlink/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".hostlink", "config.yaml")
}

// Load reads path (if it exists), then envPath (if non-empty and present),
// then applies HOSTLINK_* variables from the environment.
func Load(path, envPath string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from HOSTLINK_* variables returned by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}

	var errs []error
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	setString("PORT", &c.Serial.Port)
	setInt("BAUD", &c.Serial.Baud)
	setInt("DATA_BITS", &c.Serial.DataBits)
	setString("PARITY", &c.Serial.Parity)
	setString("STOP_BITS", &c.Serial.StopBits)
	setString("URL", &c.WebSocket.URL)
	setString("USERNAME", &c.WebSocket.Username)
	setInt("NODE", &c.Node)
	setDuration("TIMEOUT", &c.Timeout)
	setDuration("INTERVAL", &c.Interval)
	setString("LISTEN", &c.Listen)

	if v, ok := get("MQTT_BROKER"); ok {
		if c.Publish.MQTT == nil {
			c.Publish.MQTT = &publish.MQTTConfig{}
		}
		c.Publish.MQTT.Broker = v
	}
	if v, ok := get("VALKEY_ADDR"); ok {
		if c.Publish.Valkey == nil {
			c.Publish.Valkey = &publish.ValkeyConfig{}
		}
		c.Publish.Valkey.Address = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		if c.Publish.Kafka == nil {
			c.Publish.Kafka = &publish.KafkaConfig{}
		}
		c.Publish.Kafka.Brokers = strings.Split(v, ",")
	}

	return errors.Join(errs...)
}

// Validate checks ranges that would otherwise fail later on first use.
func (c *Config) Validate() error {
	if _, err := hostlink.NewNodeID(c.Node); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		return fmt.Errorf("data bits must be 5..8, got %d", c.Serial.DataBits)
	}
	return nil
}

// NodeID returns the configured node as a hostlink.NodeID. Call after
// Validate.
func (c *Config) NodeID() hostlink.NodeID {
	return hostlink.NodeIDUnchecked(uint8(c.Node))
}

// Save writes c to path as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
