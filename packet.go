package dualpi2

// ECN is the two-bit ECN codepoint of a packet.
type ECN uint8

const (
	NotECT ECN = 0b00
	ECT1   ECN = 0b01
	ECT0   ECN = 0b10
	CE     ECN = 0b11
)

func (e ECN) String() string {
	switch e {
	case NotECT:
		return "NotECT"
	case ECT1:
		return "ECT(1)"
	case ECT0:
		return "ECT(0)"
	default:
		return "CE"
	}
}

// IsL4s reports whether the codepoint routes to the low latency queue.
func (e ECN) IsL4s() bool {
	return e == ECT1 || e == CE
}

// Packet is the unit held by the engine. A packet is owned by exactly one
// queue at a time; dequeue removes and returns, it never copies.
type Packet struct {
	Size uint64 // bytes
	ECN  ECN

	// EnqueueMicros is stamped on enqueue if still zero.
	EnqueueMicros uint64

	// Marked is set when the engine rewrites the codepoint to CE.
	Marked bool
}

// Mark rewrites the ECN codepoint to CE. Returns false for a NotECT packet,
// which cannot carry a congestion mark.
func (p *Packet) Mark() bool {
	if p.ECN == NotECT {
		return false
	}
	p.ECN = CE
	p.Marked = true
	return true
}

// sojournMicros returns the time spent queued so far.
func (p *Packet) sojournMicros(nowMicros uint64) uint64 {
	if nowMicros < p.EnqueueMicros {
		return 0
	}
	return nowMicros - p.EnqueueMicros
}
