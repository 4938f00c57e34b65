package dualpi2

import (
	"log/slog"
	"time"
)

// Update runs one controller step: sample the queuing delay, move the base
// probability by the proportional and derivative error terms, and derive the
// coupled and classic probabilities. Call every UpdatePeriod, either directly
// with an externally driven clock or via StartUpdates.
func (d *DualPi2) Update(nowMicros uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cQMicros uint64
	if d.cfg.ClassicLatencyEstimator {
		if d.aggBufferLimit == 0 {
			panic("dualpi2: classic latency estimator without aggregation buffer limit")
		}
		// Most recent head-of-queue sojourn samples, taken before the
		// aggregation buffer refilled, bounded by a byte-occupancy
		// projection. Integer math, no float conversion.
		l1 := maxUint64(d.cLatencySample, d.lLatencySample)
		l2 := d.cBytesSample * uint64(d.cfg.Target.Microseconds()) / d.aggBufferLimit
		cQMicros = minUint64(l1, l2)
	} else {
		cQMicros = d.classic.headSojournMicros(nowMicros)
	}
	lQMicros := d.lowLat.headSojournMicros(nowMicros)
	curQMicros := maxUint64(cQMicros, lQMicros)

	curQ := float64(curQMicros) / 1e6
	prevQ := float64(d.prevQMicros) / 1e6
	target := d.cfg.Target.Seconds()

	d.baseProb += d.cfg.Alpha*(curQ-target) + d.cfg.Beta*(curQ-prevQ)
	d.baseProb = clampProb(d.baseProb)
	d.pCL = d.baseProb * d.cfg.K
	if d.pCL > 1 {
		d.pCL = 1
	}
	d.pC = d.baseProb * d.baseProb
	d.prevQMicros = curQMicros

	d.emitter.EmitSync(EvtProbUpdate, d.pCL, d.pC, d.baseProb)
	slog.Debug("controller update",
		slog.Uint64("curQMicros", curQMicros),
		slog.Float64("base", d.baseProb),
		slog.Float64("pCL", d.pCL),
		slog.Float64("pC", d.pC))
}

// StartUpdates runs the controller on a wall-clock ticker until Stop is
// called. For an externally clocked caller, skip this and call Update
// directly.
func (d *DualPi2) StartUpdates() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateStop != nil {
		return
	}
	stop := make(chan struct{})
	d.updateStop = stop
	go func() {
		ticker := time.NewTicker(d.cfg.UpdatePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Update(TimeNow())
			case <-stop:
				return
			}
		}
	}()
}

// Stop cancels the update ticker. Safe to call when not started.
func (d *DualPi2) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateStop != nil {
		close(d.updateStop)
		d.updateStop = nil
	}
}
