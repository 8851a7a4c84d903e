package bridge_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bridge"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := bridge.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.WorkerCount < 1 {
		t.Errorf("WorkerCount = %d, want >= 1", cfg.WorkerCount)
	}
	if cfg.OverflowPolicy != bridge.OverflowBlock {
		t.Errorf("OverflowPolicy = %s, want block", cfg.OverflowPolicy)
	}
	if cfg.Shutdown.Kind != bridge.ShutdownGraceful {
		t.Errorf("Shutdown = %s, want graceful", cfg.Shutdown)
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*bridge.Config)
	}{
		{"zero workers", func(c *bridge.Config) { c.WorkerCount = 0 }},
		{"zero capacity", func(c *bridge.Config) { c.QueueCapacity = 0 }},
		{"unknown policy", func(c *bridge.Config) { c.OverflowPolicy = 9 }},
		{"unknown shutdown", func(c *bridge.Config) { c.Shutdown.Kind = 9 }},
		{"negative grace", func(c *bridge.Config) { c.Shutdown = bridge.Graceful(-time.Second) }},
		{"negative deadline", func(c *bridge.Config) { c.DefaultDeadline = bridge.Duration(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bridge.DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, bridge.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := bridge.LoadConfig(strings.NewReader(`{
		"worker_count": 3,
		"queue_capacity": 10,
		"overflow_policy": "drop_oldest",
		"shutdown_mode": {"mode": "graceful", "timeout": "2s"},
		"default_deadline": "150ms"
	}`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, 10, cfg.QueueCapacity)
	assert.Equal(t, bridge.OverflowDropOldest, cfg.OverflowPolicy)
	assert.Equal(t, bridge.Graceful(2*time.Second), cfg.Shutdown)
	assert.Equal(t, bridge.Duration(150*time.Millisecond), cfg.DefaultDeadline)
}

func TestLoadConfig_KeepsDefaults(t *testing.T) {
	cfg, err := bridge.LoadConfig(strings.NewReader(`{"shutdown_mode": {"mode": "immediate"}}`))
	require.NoError(t, err)
	assert.Equal(t, bridge.DefaultConfig().QueueCapacity, cfg.QueueCapacity)
	assert.Equal(t, bridge.Immediate(), cfg.Shutdown)
}

func TestLoadConfig_Errors(t *testing.T) {
	for _, doc := range []string{
		`{"overflow_policy": "sometimes"}`,
		`{"shutdown_mode": {"mode": "eventually"}}`,
		`{"default_deadline": "soon"}`,
		`{"worker_count": 0}`,
		`{"unknown_field": true}`,
	} {
		if _, err := bridge.LoadConfig(strings.NewReader(doc)); err == nil {
			t.Errorf("LoadConfig(%s): expected error", doc)
		}
	}
}

func TestShutdownMode_JSONRoundTrip(t *testing.T) {
	for _, m := range []bridge.ShutdownMode{bridge.Graceful(5 * time.Second), bridge.Immediate()} {
		b, err := json.Marshal(m)
		require.NoError(t, err)
		var got bridge.ShutdownMode
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, m, got, "round trip of %s", b)
	}
}

func TestShutdownMode_String(t *testing.T) {
	assert.Equal(t, "immediate", bridge.Immediate().String())
	assert.Equal(t, "graceful(1s)", bridge.Graceful(time.Second).String())
}

func TestOverflowPolicy_Text(t *testing.T) {
	for _, p := range []bridge.OverflowPolicy{bridge.OverflowBlock, bridge.OverflowReject, bridge.OverflowDropOldest} {
		b, err := p.MarshalText()
		require.NoError(t, err)
		var got bridge.OverflowPolicy
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, p, got)
	}
}
