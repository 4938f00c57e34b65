package dualpi2

import "log/slog"

// PendingDequeue is the lookahead path for aggregating link layers. The link
// layer announces how many more bytes it can still accept into the current
// transmission opportunity; if the transmit path is stalled waiting for data,
// packets are pulled through the normal scheduling and mark/drop logic now
// and parked in per-class staging buffers, so the marks the link layer is
// about to report already reflect the full backlog.
//
// Dropped packets consume no budget and are never staged. A zero budget
// stages nothing.
func (d *DualPi2) PendingDequeue(pendingBytes uint64, nowMicros uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// samples for the alternative classic latency estimator, taken before
	// the staging pass drains the heads
	d.cLatencySample = d.classic.headSojournMicros(nowMicros)
	d.lLatencySample = d.lowLat.headSojournMicros(nowMicros)
	d.cBytesSample = d.classic.nBytes()

	if d.cfg.TxStalled == nil || !d.cfg.TxStalled() {
		// the real dequeue path will run normally
		return
	}
	queuePending := d.queueBytes() +
		d.cfg.FramingOverhead*uint64(d.classic.len()+d.lowLat.len())
	if pendingBytes > queuePending {
		// the link layer can absorb everything that is queued
		return
	}
	slog.Debug("pending dequeue",
		slog.Uint64("pendingBytes", pendingBytes),
		slog.Uint64("queuePending", queuePending))

	budget := pendingBytes
	marked := 0
staging:
	for i := 0; ; i++ {
		if i > maxSchedulerIterations {
			panic("dualpi2: staging loop failed to terminate")
		}
		classicOK, lowLatOK := d.canSchedule(budget)
		if !classicOK && !lowLatOK {
			break
		}
		switch d.schedule(classicOK, lowLatOK) {
		case ClassLowLatency:
			pkt, m := d.dequeueL4s(nowMicros)
			if pkt == nil {
				continue // dropped, budget untouched
			}
			framed := pkt.Size + d.cfg.FramingOverhead
			if framed > budget {
				panic("dualpi2: staged packet exceeds pending budget")
			}
			d.lowLatStaging = append(d.lowLatStaging, pkt)
			budget -= framed
			if m {
				marked++
			}
		case ClassClassic:
			pkt, _ := d.dequeueClassic(nowMicros)
			if pkt == nil {
				continue
			}
			framed := pkt.Size + d.cfg.FramingOverhead
			if framed > budget {
				panic("dualpi2: staged packet exceeds pending budget")
			}
			d.classicStaging = append(d.classicStaging, pkt)
			budget -= framed
		default:
			// both sub-queues exhausted
			break staging
		}
	}

	// The delay signal the link layer reports covers every low latency
	// packet still queued, not just what fit in this budget, so top up the
	// staged marks until they cover the unstaged remainder.
	if remaining := d.lowLat.len(); remaining > marked {
		pendingMarks := remaining - marked
		slog.Debug("staging mark reconciliation",
			slog.Int("pendingMarks", pendingMarks))
		for _, pkt := range d.lowLatStaging {
			if pendingMarks == 0 {
				break
			}
			if pkt.ECN == ECT1 {
				d.markL4s(pkt)
				pendingMarks--
			}
		}
	}
}

// popStaged removes and returns the head of a staging buffer, or nil.
func (d *DualPi2) popStaged(buf *[]*Packet) *Packet {
	if len(*buf) == 0 {
		return nil
	}
	pkt := (*buf)[0]
	*buf = (*buf)[1:]
	return pkt
}

// stagedBytes returns the bytes parked in both staging buffers.
func (d *DualPi2) stagedBytes() uint64 {
	var n uint64
	for _, pkt := range d.lowLatStaging {
		n += pkt.Size
	}
	for _, pkt := range d.classicStaging {
		n += pkt.Size
	}
	return n
}

// StagedPackets returns the number of packets parked in both staging buffers.
func (d *DualPi2) StagedPackets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lowLatStaging) + len(d.classicStaging)
}
