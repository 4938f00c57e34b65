package dualpi2

import "log/slog"

// canSchedule reports per class whether the head of line packet, with link
// framing added, fits within the given byte budget.
func (d *DualPi2) canSchedule(byteBudget uint64) (classicOK bool, lowLatOK bool) {
	if d.queueBytes() == 0 {
		return false, false
	}
	if pkt := d.lowLat.peek(); pkt != nil {
		lowLatOK = pkt.Size+d.cfg.FramingOverhead <= byteBudget
	}
	if pkt := d.classic.peek(); pkt != nil {
		classicOK = pkt.Size+d.cfg.FramingOverhead <= byteBudget
	}
	return classicOK, lowLatOK
}

// schedule is a two-band weighted deficit round robin. It iterates until a
// class is selected, starting a fresh round whenever both classes have been
// deactivated. An ineligible class is deactivated for the round without
// touching its deficit; an empty class has its deficit zeroed. A non-empty
// queue must resolve within the iteration cap, anything else is a broken
// invariant and panics.
func (d *DualPi2) schedule(eligibleClassic bool, eligibleLowLat bool) Class {
	var lowLatHol, classicHol uint64
	if pkt := d.lowLat.peek(); pkt != nil {
		lowLatHol = pkt.Size
	}
	if pkt := d.classic.peek(); pkt != nil {
		classicHol = pkt.Size
	}
	if lowLatHol == 0 && classicHol == 0 {
		return ClassNone
	}
	for i := 0; i < maxSchedulerIterations; i++ {
		if !d.lowLatActive && !d.classicActive {
			d.lowLatActive = true
			d.classicActive = true
			d.lowLatDeficit += uint64(float64(d.cfg.Quantum) * d.cfg.SchedulingWeight)
			d.classicDeficit += d.cfg.Quantum
			slog.Debug("new WDRR round",
				slog.Uint64("lowLatDeficit", d.lowLatDeficit),
				slog.Uint64("classicDeficit", d.classicDeficit))
		}
		if lowLatHol != 0 && eligibleLowLat {
			if lowLatHol <= d.lowLatDeficit {
				d.lowLatDeficit -= lowLatHol
				return ClassLowLatency
			}
			// over deficit; leftover carries to the next round
			d.lowLatActive = false
		} else if lowLatHol == 0 {
			d.lowLatDeficit = 0
			d.lowLatActive = false
		} else {
			// ineligible for this pass
			d.lowLatActive = false
		}
		if classicHol != 0 && eligibleClassic {
			if classicHol <= d.classicDeficit {
				d.classicDeficit -= classicHol
				return ClassClassic
			}
			d.classicActive = false
		} else if classicHol == 0 {
			d.classicDeficit = 0
			d.classicActive = false
		} else {
			d.classicActive = false
		}
	}
	panic("dualpi2: scheduler failed to select from a non-empty queue")
}
