package dualpi2

import (
	"log/slog"
	"sync"
)

// Class identifies one of the two traffic classes.
type Class int

const (
	ClassClassic Class = iota
	ClassLowLatency
	ClassNone
)

func (c Class) String() string {
	switch c {
	case ClassClassic:
		return "classic"
	case ClassLowLatency:
		return "lowlatency"
	default:
		return "none"
	}
}

// Stats are the engine drop and mark counters.
type Stats struct {
	ForcedDrops     uint64 // enqueue rejections over the queue limit
	ClassicDrops    uint64 // unforced drops from the classic queue
	LowLatencyDrops uint64 // unforced drops from the low latency queue (overload)
	Marks           uint64 // CE marks applied
}

// DualPi2 is a coupled dual-queue AQM engine for one bottleneck link.
//
// All methods serialize on one mutex; the control algorithms themselves
// assume a single caller at a time.
type DualPi2 struct {
	mu  sync.Mutex
	cfg Config

	classic *subQueue
	lowLat  *subQueue

	classicStaging []*Packet
	lowLatStaging  []*Packet

	queueLimit     uint64
	aggBufferLimit uint64

	// controller state
	baseProb    float64
	pCL         float64 // coupled probability, min(base*K, 1)
	pC          float64 // classic probability, base^2
	pL          float64 // last applied low latency mark probability
	pCmax       float64 // min(1/K^2, 1)
	pLmax       float64
	prevQMicros uint64

	// Recur accumulators, fractional residue in [0,1)
	classicAcc float64
	lowLatAcc  float64

	// WDRR state
	classicDeficit uint64
	lowLatDeficit  uint64
	classicActive  bool
	lowLatActive   bool

	// samples for the alternative classic latency estimator
	cLatencySample uint64
	lLatencySample uint64
	cBytesSample   uint64

	stats   Stats
	emitter *Emitter

	updateStop chan struct{}
}

// New returns an engine for the given configuration, or an error when the
// configuration is inconsistent.
func New(cfg Config) (*DualPi2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	pCmax := 1 / (cfg.K * cfg.K)
	if pCmax > 1 {
		pCmax = 1
	}
	return &DualPi2{
		cfg:            cfg,
		classic:        newSubQueue(),
		lowLat:         newSubQueue(),
		classicStaging: make([]*Packet, 0),
		lowLatStaging:  make([]*Packet, 0),
		queueLimit:     cfg.QueueLimit,
		aggBufferLimit: cfg.AggregationBufferLimit,
		pCmax:          pCmax,
		pLmax:          1,
		emitter:        NewEmitter(),
	}, nil
}

// SetQueueLimit updates the queue limit in bytes.
func (d *DualPi2) SetQueueLimit(limit uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queueLimit = limit
}

// SetAggregationBufferLimit updates the byte occupancy target used by the
// alternative classic latency estimator.
func (d *DualPi2) SetAggregationBufferLimit(limit uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aggBufferLimit = limit
}

// QueueBytes returns the total bytes across both sub-queues. Staged packets
// are no longer resident in the sub-queues and are not counted.
func (d *DualPi2) QueueBytes() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queueBytes()
}

func (d *DualPi2) queueBytes() uint64 {
	return d.classic.nBytes() + d.lowLat.nBytes()
}

// QueuePackets returns the total packets across both sub-queues.
func (d *DualPi2) QueuePackets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classic.len() + d.lowLat.len()
}

// Stats returns a snapshot of the drop and mark counters.
func (d *DualPi2) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Probabilities returns the current coupled, classic and low latency mark
// probabilities.
func (d *DualPi2) Probabilities() (pCL float64, pC float64, pL float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pCL, d.pC, d.pL
}

// Enqueue classifies the packet by ECN codepoint and appends it to a
// sub-queue. Returns false when the packet would exceed the queue limit, in
// which case it is counted as a forced drop and not retained.
func (d *DualPi2) Enqueue(pkt *Packet, nowMicros uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queueBytes()+pkt.Size > d.queueLimit {
		d.stats.ForcedDrops++
		d.emitter.EmitSync(EvtForcedDrop, pkt)
		slog.Debug("enqueue drop over queue limit",
			slog.Uint64("limit", d.queueLimit),
			slog.Uint64("size", pkt.Size))
		return false
	}
	if pkt.EnqueueMicros == 0 {
		pkt.EnqueueMicros = nowMicros
	}
	cls, q := ClassClassic, d.classic
	if pkt.ECN.IsL4s() {
		cls, q = ClassLowLatency, d.lowLat
	}
	q.push(pkt)
	slog.Debug("enqueue",
		slog.String("class", cls.String()),
		slog.Uint64("size", pkt.Size),
		slog.Int("qlen", q.len()))
	return true
}

// Dequeue returns the next packet to transmit, or nil when nothing remains.
// Packets parked by PendingDequeue drain first, low latency staging before
// classic staging, in their staged order; live scheduling resumes only once
// both staging buffers are empty.
func (d *DualPi2) Dequeue(nowMicros uint64) *Packet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dequeueLocked(nowMicros)
}

func (d *DualPi2) dequeueLocked(nowMicros uint64) *Packet {
	if pkt := d.popStaged(&d.lowLatStaging); pkt != nil {
		// disposition was finalized when the packet was staged
		d.traceSojourn(ClassLowLatency, pkt, nowMicros)
		return pkt
	}
	if pkt := d.popStaged(&d.classicStaging); pkt != nil {
		d.traceSojourn(ClassClassic, pkt, nowMicros)
		return pkt
	}
	for d.queueBytes() > 0 {
		switch d.schedule(true, true) {
		case ClassLowLatency:
			if pkt, _ := d.dequeueL4s(nowMicros); pkt != nil {
				d.traceSojourn(ClassLowLatency, pkt, nowMicros)
				return pkt
			}
			// drop occurred, keep scheduling
		case ClassClassic:
			if pkt, _ := d.dequeueClassic(nowMicros); pkt != nil {
				d.traceSojourn(ClassClassic, pkt, nowMicros)
				return pkt
			}
		default:
			return nil
		}
	}
	return nil
}

// Peek returns the packet Dequeue would return next without removing it,
// following the same staging-first order.
func (d *DualPi2) Peek() *Packet {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lowLatStaging) > 0 {
		return d.lowLatStaging[0]
	}
	if len(d.classicStaging) > 0 {
		return d.classicStaging[0]
	}
	if pkt := d.classic.peek(); pkt != nil {
		return pkt
	}
	return d.lowLat.peek()
}

// dequeueL4s pops low latency packets until one survives the mark/drop
// decision or the queue empties. The second return reports whether the
// returned packet was CE marked by this call.
func (d *DualPi2) dequeueL4s(nowMicros uint64) (*Packet, bool) {
	pkt := d.lowLat.pop()
	for pkt != nil {
		if d.pCL < d.pLmax {
			// below overload saturation
			var pPrimeL float64
			if d.lowLat.len() > 1 {
				pPrimeL = d.laqm(pkt.sojournMicros(nowMicros))
			}
			// suppressed at one packet queued, a nearly empty queue
			// must not mark itself into a false signal
			pL := pPrimeL
			if d.pCL > pL {
				pL = d.pCL
			}
			if pL > 1 {
				pL = 1
			}
			d.pL = pL
			if d.recur(&d.lowLatAcc, pL) {
				d.markL4s(pkt)
				return pkt, true
			}
			return pkt, false
		}
		// overload: classic-style squared drop, linear mark of the rest
		if d.recur(&d.lowLatAcc, d.pC) {
			d.stats.LowLatencyDrops++
			d.emitter.EmitSync(EvtDrop, ClassLowLatency, pkt)
			slog.Debug("lowlatency overload drop",
				slog.Uint64("qbytes", d.lowLat.nBytes()))
			pkt = d.lowLat.pop()
			continue
		}
		if d.recur(&d.lowLatAcc, d.pCL) {
			d.markL4s(pkt)
			return pkt, true
		}
		return pkt, false
	}
	return nil, false
}

func (d *DualPi2) markL4s(pkt *Packet) {
	if !pkt.Mark() {
		// the classifier only routes ECT(1) and CE here
		panic("dualpi2: unmarkable packet in low latency queue")
	}
	d.stats.Marks++
	d.emitter.EmitSync(EvtMark, pkt)
}

// dequeueClassic pops classic packets until one survives the drop decision
// or the queue empties. The second return reports whether any packet was
// dropped by this call.
func (d *DualPi2) dequeueClassic(nowMicros uint64) (*Packet, bool) {
	pkt := d.classic.pop()
	// Linux heuristic: never drop when under two MTU of backlog
	if d.classic.nBytes() < 2*d.cfg.Mtu {
		return pkt, false
	}
	var dropped bool
	for pkt != nil {
		// overload disables ECN so the drop is unconditional at pCmax
		if d.recur(&d.classicAcc, d.pC) || d.pC >= d.pCmax {
			d.stats.ClassicDrops++
			d.emitter.EmitSync(EvtDrop, ClassClassic, pkt)
			slog.Debug("classic drop",
				slog.Uint64("qbytes", d.classic.nBytes()))
			dropped = true
			pkt = d.classic.pop()
			continue
		}
		return pkt, dropped
	}
	return nil, dropped
}

// laqm is the local linear marking ramp over low latency queue delay.
func (d *DualPi2) laqm(sojournMicros uint64) float64 {
	if d.cfg.DisableLaqm {
		return 0
	}
	minTh := uint64(d.cfg.MinTh.Microseconds())
	rang := uint64(d.cfg.Range.Microseconds())
	if sojournMicros >= minTh+rang {
		return 1
	}
	if sojournMicros > minTh {
		return float64(sojournMicros-minTh) / float64(rang)
	}
	return 0
}

// recur is the de-randomized Bernoulli test: the likelihood accumulates in a
// persistent per-class residue and fires each time it crosses one, spreading
// marks evenly instead of drawing independent random numbers.
func (d *DualPi2) recur(acc *float64, likelihood float64) bool {
	*acc += likelihood
	if *acc > 1 {
		*acc -= 1
		return true
	}
	return false
}

func (d *DualPi2) traceSojourn(cls Class, pkt *Packet, nowMicros uint64) {
	s := pkt.sojournMicros(nowMicros)
	d.emitter.EmitSync(EvtSojourn, cls, s)
	slog.Debug("dequeue",
		slog.String("class", cls.String()),
		slog.Uint64("sojournMicros", s))
}
