// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyConfig describes a Valkey (or Redis) server.
type ValkeyConfig struct {
	Address        string        `yaml:"address"`
	Password       string        `yaml:"password"`
	Database       int           `yaml:"database"`
	UseTLS         bool          `yaml:"use_tls"`
	KeyPrefix      string        `yaml:"key_prefix"`
	KeyTTL         time.Duration `yaml:"key_ttl"`
	PublishChanges bool          `yaml:"publish_changes"`
}

// ValkeySink stores the latest status under <prefix>:<node>:status and
// optionally publishes it on a channel of the same name.
type ValkeySink struct {
	config ValkeyConfig
	client *redis.Client
}

// DialValkey connects to the server described by cfg.
func DialValkey(ctx context.Context, cfg ValkeyConfig) (*ValkeySink, error) {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey: connect %s: %w", cfg.Address, err)
	}

	return &ValkeySink{config: cfg, client: client}, nil
}

// Name implements Sink.
func (s *ValkeySink) Name() string {
	return "valkey " + s.config.Address
}

// ValkeyKey builds <prefix>:<node>:status, defaulting prefix to "hostlink".
func ValkeyKey(prefix, node string) string {
	if prefix == "" {
		prefix = "hostlink"
	}
	return joinKey(":", prefix, node, "status")
}

// Publish implements Sink.
func (s *ValkeySink) Publish(ctx context.Context, msg StatusMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("valkey: marshal status: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	key := ValkeyKey(s.config.KeyPrefix, msg.Node)
	if err := s.client.Set(ctx, key, data, s.config.KeyTTL).Err(); err != nil {
		return fmt.Errorf("valkey: set %s: %w", key, err)
	}

	if s.config.PublishChanges {
		if err := s.client.Publish(ctx, key, data).Err(); err != nil {
			return fmt.Errorf("valkey: publish %s: %w", key, err)
		}
	}
	return nil
}

// Close implements Sink.
func (s *ValkeySink) Close() error {
	return s.client.Close()
}
