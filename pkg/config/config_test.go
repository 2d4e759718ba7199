// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Thermoquad/hostlink/pkg/publish"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Serial.Baud != 9600 || cfg.Serial.DataBits != 7 || cfg.Serial.Parity != "even" || cfg.Serial.StopBits != "2" {
		t.Errorf("unexpected serial defaults: %+v", cfg.Serial)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
serial:
  port: /dev/ttyUSB1
  baud: 19200
node: 12
timeout: 500ms
publish:
  mqtt:
    broker: broker.local
    root_topic: plant
  kafka:
    brokers: [k1:9092, k2:9092]
    topic: plc.status
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyUSB1" || cfg.Serial.Baud != 19200 {
		t.Errorf("unexpected serial: %+v", cfg.Serial)
	}
	if cfg.Serial.DataBits != 7 {
		t.Errorf("unset field lost its default: data bits %d", cfg.Serial.DataBits)
	}
	if cfg.Node != 12 || cfg.NodeID().String() != "12" {
		t.Errorf("unexpected node %d", cfg.Node)
	}
	if cfg.Timeout != 500*time.Millisecond {
		t.Errorf("unexpected timeout %s", cfg.Timeout)
	}
	if cfg.Publish.MQTT == nil || cfg.Publish.MQTT.Broker != "broker.local" || cfg.Publish.MQTT.RootTopic != "plant" {
		t.Errorf("unexpected mqtt: %+v", cfg.Publish.MQTT)
	}
	if cfg.Publish.Kafka == nil || len(cfg.Publish.Kafka.Brokers) != 2 {
		t.Errorf("unexpected kafka: %+v", cfg.Publish.Kafka)
	}
	if cfg.Publish.Valkey != nil {
		t.Error("valkey should stay unset")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Serial.Baud != 9600 {
		t.Errorf("expected defaults, got baud %d", cfg.Serial.Baud)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("serial: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, ""); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("HOSTLINK_NODE=7\nHOSTLINK_VALKEY_ADDR=valkey:6379\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOSTLINK_NODE", "")
	os.Unsetenv("HOSTLINK_NODE")
	t.Setenv("HOSTLINK_VALKEY_ADDR", "")
	os.Unsetenv("HOSTLINK_VALKEY_ADDR")

	cfg, err := Load("", envPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Node != 7 {
		t.Errorf("expected node 7 from .env, got %d", cfg.Node)
	}
	if cfg.Publish.Valkey == nil || cfg.Publish.Valkey.Address != "valkey:6379" {
		t.Errorf("unexpected valkey: %+v", cfg.Publish.Valkey)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HOSTLINK_PORT":          "/dev/ttyS3",
		"HOSTLINK_BAUD":          "4800",
		"HOSTLINK_PARITY":        "odd",
		"HOSTLINK_TIMEOUT":       "250ms",
		"HOSTLINK_URL":           "ws://bridge/serial",
		"HOSTLINK_KAFKA_BROKERS": "a:9092,b:9092",
		"HOSTLINK_MQTT_BROKER":   "",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyS3" || cfg.Serial.Baud != 4800 || cfg.Serial.Parity != "odd" {
		t.Errorf("unexpected serial: %+v", cfg.Serial)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Errorf("unexpected timeout %s", cfg.Timeout)
	}
	if cfg.WebSocket.URL != "ws://bridge/serial" {
		t.Errorf("unexpected url %q", cfg.WebSocket.URL)
	}
	if cfg.Publish.Kafka == nil || len(cfg.Publish.Kafka.Brokers) != 2 {
		t.Errorf("unexpected kafka: %+v", cfg.Publish.Kafka)
	}
	if cfg.Publish.MQTT != nil {
		t.Error("empty variable should not enable mqtt")
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HOSTLINK_BAUD":    "fast",
		"HOSTLINK_TIMEOUT": "soon",
	}))
	if err == nil {
		t.Fatal("expected an error")
	}
	if cfg.Serial.Baud != 9600 {
		t.Errorf("bad value overwrote baud: %d", cfg.Serial.Baud)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"node too large", func(c *Config) { c.Node = 100 }},
		{"negative node", func(c *Config) { c.Node = -1 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"data bits", func(c *Config) { c.Serial.DataBits = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Publish.Valkey = &publish.ValkeyConfig{Address: "localhost:6379", KeyTTL: time.Minute}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Serial.Port != "/dev/ttyUSB0" {
		t.Errorf("port not saved: %q", loaded.Serial.Port)
	}
	if loaded.Publish.Valkey == nil || loaded.Publish.Valkey.KeyTTL != time.Minute {
		t.Errorf("valkey not saved: %+v", loaded.Publish.Valkey)
	}
}
