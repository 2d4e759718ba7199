// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig describes an MQTT broker.
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	Port      int    `yaml:"port"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	UseTLS    bool   `yaml:"use_tls"`
	RootTopic string `yaml:"root_topic"`
}

// Address returns the broker URL.
func (c MQTTConfig) Address() string {
	port := c.Port
	if port == 0 {
		port = 1883
		if c.UseTLS {
			port = 8883
		}
	}
	if c.UseTLS {
		return fmt.Sprintf("ssl://%s:%d", c.Broker, port)
	}
	return fmt.Sprintf("tcp://%s:%d", c.Broker, port)
}

// MQTTSink publishes retained status messages to <root>/<node>/status.
type MQTTSink struct {
	config MQTTConfig
	client pahomqtt.Client
}

// DialMQTT connects to the broker described by cfg.
func DialMQTT(cfg MQTTConfig) (*MQTTSink, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Address())
	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("hostlink-%d", time.Now().UnixNano())
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt: connection to %s timed out", cfg.Address())
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Address(), err)
	}

	return &MQTTSink{config: cfg, client: client}, nil
}

// Name implements Sink.
func (s *MQTTSink) Name() string {
	return "mqtt " + s.config.Address()
}

// Topic returns the topic status messages for node are published on.
func (s *MQTTSink) Topic(node string) string {
	return MQTTTopic(s.config.RootTopic, node)
}

// MQTTTopic builds <root>/<node>/status, defaulting root to "hostlink".
func MQTTTopic(root, node string) string {
	if root == "" {
		root = "hostlink"
	}
	return joinKey("/", root, node, "status")
}

// Publish implements Sink.
func (s *MQTTSink) Publish(ctx context.Context, msg StatusMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mqtt: marshal status: %w", err)
	}

	token := s.client.Publish(s.Topic(msg.Node), 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return fmt.Errorf("mqtt: publish timed out")
	}
	return token.Error()
}

// Close implements Sink.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
