// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

func TestNewStatusMessage_Online(t *testing.T) {
	node, _ := hostlink.NewNodeID(3)
	status := hostlink.Status{
		Mode: hostlink.ModeMonitor,
		Memory: hostlink.StatusMemory{
			Size:           4000,
			WriteProtected: true,
			FatalError:     true,
		},
		Message: "TANK LOW",
	}

	msg := NewStatusMessage(node, status, nil)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	checks := map[string]interface{}{
		"node":            "03",
		"online":          true,
		"mode":            "MONITOR",
		"memory_size":     float64(4000),
		"write_protected": true,
		"fatal_error":     true,
		"fals_generated":  false,
		"message":         "TANK LOW",
	}
	for field, want := range checks {
		if decoded[field] != want {
			t.Errorf("%s = %v, want %v", field, decoded[field], want)
		}
	}
	if _, ok := decoded["error"]; ok {
		t.Error("error should be omitted for an online controller")
	}
	if _, ok := decoded["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestNewStatusMessage_Offline(t *testing.T) {
	node, _ := hostlink.NewNodeID(0)
	msg := NewStatusMessage(node, hostlink.Status{Mode: hostlink.ModeRun}, errors.New("no response"))

	if msg.Online {
		t.Error("expected offline")
	}
	if msg.Mode != "" {
		t.Errorf("mode should be empty when offline, got %q", msg.Mode)
	}
	if msg.Error != "no response" {
		t.Errorf("unexpected error text %q", msg.Error)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"mqtt default root", MQTTTopic("", "00"), "hostlink/00/status"},
		{"mqtt root", MQTTTopic("plant/line1", "12"), "plant/line1/12/status"},
		{"valkey default prefix", ValkeyKey("", "00"), "hostlink:00:status"},
		{"valkey prefix", ValkeyKey("factory", "07"), "factory:07:status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestMQTTConfig_Address(t *testing.T) {
	tests := []struct {
		cfg  MQTTConfig
		want string
	}{
		{MQTTConfig{Broker: "localhost"}, "tcp://localhost:1883"},
		{MQTTConfig{Broker: "localhost", UseTLS: true}, "ssl://localhost:8883"},
		{MQTTConfig{Broker: "broker", Port: 1884}, "tcp://broker:1884"},
	}

	for _, tt := range tests {
		if got := tt.cfg.Address(); got != tt.want {
			t.Errorf("Address() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewKafkaWriter(t *testing.T) {
	w := newKafkaWriter(KafkaConfig{Brokers: []string{"a:9092", "b:9092"}, Topic: "plc"})
	defer w.Close()

	if w.Topic != "plc" {
		t.Errorf("topic = %q", w.Topic)
	}
	if w.Addr.String() != "a:9092,b:9092" {
		t.Errorf("addr = %q", w.Addr.String())
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Errorf("expected hash balancer keyed by node, got %T", w.Balancer)
	}
}

func TestDialKafka_NoBrokers(t *testing.T) {
	if _, err := DialKafka(context.Background(), KafkaConfig{}); err == nil {
		t.Error("expected an error without brokers")
	}
}

type fakeSink struct {
	name   string
	err    error
	got    []StatusMessage
	closed bool
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(_ context.Context, msg StatusMessage) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, msg)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestFanout(t *testing.T) {
	good := &fakeSink{name: "good"}
	bad := &fakeSink{name: "bad", err: errors.New("broker down")}
	other := &fakeSink{name: "other"}

	f := NewFanout(nil, good, bad)
	f.Add(other)
	if f.Len() != 3 {
		t.Fatalf("expected 3 sinks, got %d", f.Len())
	}

	err := f.Publish(context.Background(), StatusMessage{Node: "00", Online: true})
	if err == nil || !strings.Contains(err.Error(), "bad: broker down") {
		t.Errorf("expected joined sink error, got %v", err)
	}
	if len(good.got) != 1 || len(other.got) != 1 {
		t.Error("a failing sink stopped delivery to the others")
	}

	bad.err = nil
	if err := f.Publish(context.Background(), StatusMessage{Node: "00"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	published, failed := f.Counts()
	if published != 1 || failed != 1 {
		t.Errorf("counts = %d/%d, want 1/1", published, failed)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !good.closed || !bad.closed || !other.closed {
		t.Error("not every sink was closed")
	}
}
