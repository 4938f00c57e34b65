package dualpi2

import (
	"errors"
	"fmt"
	"time"
)

// Config carries the engine parameters. All fields are fixed once the engine
// is constructed, except the queue limit and the aggregation buffer limit,
// which have live setters on the engine.
type Config struct {
	// Mtu is the device MTU in bytes.
	Mtu uint64

	// Alpha and Beta are the proportional and derivative controller gains
	// in Hz, applied to seconds-denominated delay errors.
	Alpha float64
	Beta  float64

	// UpdatePeriod is the interval between controller updates.
	UpdatePeriod time.Duration

	// Target is the classic queue delay target.
	Target time.Duration

	// QueueLimit bounds the total bytes across both sub-queues.
	QueueLimit uint64

	// MinTh and Range define the linear marking ramp applied to the
	// low latency queue delay.
	MinTh time.Duration
	Range time.Duration

	// K couples the low latency marking probability to the base probability.
	K float64

	// SchedulingWeight is the number of low latency quantums per classic
	// quantum in a WDRR round. Must be at least 1.
	SchedulingWeight float64

	// Quantum is the WDRR quantum in bytes.
	Quantum uint64

	// FramingOverhead is added per packet when sizing against a pending
	// dequeue byte budget.
	FramingOverhead uint64

	// DisableLaqm forces the local ramp probability to zero.
	DisableLaqm bool

	// ClassicLatencyEstimator enables the alternative classic queue latency
	// estimate for aggregating link layers. Requires AggregationBufferLimit.
	ClassicLatencyEstimator bool

	// AggregationBufferLimit is the target byte occupancy used by the
	// alternative latency estimator.
	AggregationBufferLimit uint64

	// TxStalled reports whether the transmit path is blocked waiting for
	// data. PendingDequeue is a no-op while it returns false. A nil func
	// means never stalled.
	TxStalled func() bool
}

// DefaultConfig returns a parameter set tuned for a 50 Mbps class
// bottleneck: 250 ms of buffer, 15 ms target, coupling factor 2 and a 90%
// low latency scheduling share.
func DefaultConfig() Config {
	return Config{
		Mtu:              1500,
		Alpha:            0.15,
		Beta:             3,
		UpdatePeriod:     15 * time.Millisecond,
		Target:           15 * time.Millisecond,
		QueueLimit:       1562500,
		MinTh:            800 * time.Microsecond,
		Range:            400 * time.Microsecond,
		K:                2,
		SchedulingWeight: 9,
		Quantum:          1500,
		FramingOverhead:  defaultFramingOverhead,
	}
}

func (c *Config) validate() error {
	if c.Mtu < minMtu {
		return fmt.Errorf("mtu %v below RFC 791 minimum of %v", c.Mtu, minMtu)
	}
	if c.Alpha <= 0 || c.Beta <= 0 {
		return errors.New("controller gains must be positive")
	}
	if c.UpdatePeriod <= 0 {
		return errors.New("update period must be positive")
	}
	if c.Target <= 0 {
		return errors.New("delay target must be positive")
	}
	if c.QueueLimit == 0 {
		return errors.New("queue limit must be positive")
	}
	if c.MinTh < 0 || c.Range <= 0 {
		return errors.New("invalid marking ramp thresholds")
	}
	if c.K < 1 {
		return fmt.Errorf("coupling factor %v below 1", c.K)
	}
	if c.SchedulingWeight < 1 {
		return fmt.Errorf("scheduling weight %v below 1", c.SchedulingWeight)
	}
	if c.Quantum == 0 {
		return errors.New("quantum must be positive")
	}
	if c.ClassicLatencyEstimator && c.AggregationBufferLimit == 0 {
		return errors.New("classic latency estimator requires an aggregation buffer limit")
	}
	return nil
}
