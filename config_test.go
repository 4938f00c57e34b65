package dualpi2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, d)
	assert.InDelta(t, 0.25, d.pCmax, 1e-9) // K = 2
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mtu below minimum", func(c *Config) { c.Mtu = 67 }},
		{"zero alpha", func(c *Config) { c.Alpha = 0 }},
		{"negative beta", func(c *Config) { c.Beta = -1 }},
		{"zero update period", func(c *Config) { c.UpdatePeriod = 0 }},
		{"zero target", func(c *Config) { c.Target = 0 }},
		{"zero queue limit", func(c *Config) { c.QueueLimit = 0 }},
		{"zero ramp range", func(c *Config) { c.Range = 0 }},
		{"coupling below one", func(c *Config) { c.K = 0.5 }},
		{"weight below one", func(c *Config) { c.SchedulingWeight = 0.9 }},
		{"zero quantum", func(c *Config) { c.Quantum = 0 }},
		{"estimator without agg limit", func(c *Config) {
			c.ClassicLatencyEstimator = true
			c.AggregationBufferLimit = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigMtuAtMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mtu = 68
	_, err := New(cfg)
	assert.NoError(t, err)
}

func TestConfigEstimatorWithLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClassicLatencyEstimator = true
	cfg.AggregationBufferLimit = 65535
	cfg.UpdatePeriod = 10 * time.Millisecond
	_, err := New(cfg)
	assert.NoError(t, err)
}
