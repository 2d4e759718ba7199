// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig describes a Kafka cluster and the topic status messages go to.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// KafkaSink writes status messages keyed by node id.
type KafkaSink struct {
	config KafkaConfig
	writer *kafka.Writer
}

// DialKafka checks that the first broker is reachable and prepares a writer.
func DialKafka(ctx context.Context, cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = "hostlink.status"
	}

	dialer := &kafka.Dialer{Timeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka: connect %s: %w", cfg.Brokers[0], err)
	}
	conn.Close()

	return &KafkaSink{config: cfg, writer: newKafkaWriter(cfg)}, nil
}

func newKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Name implements Sink.
func (s *KafkaSink) Name() string {
	return fmt.Sprintf("kafka %s/%s", strings.Join(s.config.Brokers, ","), s.config.Topic)
}

// Publish implements Sink.
func (s *KafkaSink) Publish(ctx context.Context, msg StatusMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka: marshal status: %w", err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Node),
		Value: value,
		Time:  msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("kafka produce failed: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
