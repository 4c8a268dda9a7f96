// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// RedisOptions configures the Redis publisher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string // pub/sub channel
	ListKey  string // backlog list; empty disables it
	MaxLen   int64  // backlog length kept by LTRIM
}

// DefaultRedisOptions returns publisher defaults for addr.
func DefaultRedisOptions(addr string) RedisOptions {
	return RedisOptions{
		Addr:    addr,
		Channel: "medjc09:reports",
		ListKey: "medjc09:reports:backlog",
		MaxLen:  1000,
	}
}

// Publisher publishes reports as JSON on a Redis channel and keeps a
// bounded backlog list.
type Publisher struct {
	client *redis.Client
	opts   RedisOptions
	log    zerolog.Logger
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, opts RedisOptions, log zerolog.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Str("channel", opts.Channel).Msg("redis connected")

	return &Publisher{client: client, opts: opts, log: log}, nil
}

// Write publishes one record.
func (p *Publisher) Write(ctx context.Context, rec medjc09.ReportRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := p.client.Publish(ctx, p.opts.Channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	if p.opts.ListKey == "" {
		return nil
	}

	pipe := p.client.Pipeline()
	pipe.LPush(ctx, p.opts.ListKey, data)
	if p.opts.MaxLen > 0 {
		pipe.LTrim(ctx, p.opts.ListKey, 0, p.opts.MaxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn().Err(err).Str("key", p.opts.ListKey).Msg("failed to append report backlog")
	}
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
