package dualpi2

// subQueue is a byte-counted FIFO of packets, one per traffic class.
type subQueue struct {
	packets []*Packet
	bytes   uint64
}

func newSubQueue() *subQueue {
	return &subQueue{
		packets: make([]*Packet, 0),
	}
}

func (q *subQueue) push(pkt *Packet) {
	q.packets = append(q.packets, pkt)
	q.bytes += pkt.Size
}

// pop removes and returns the head, or nil when empty.
func (q *subQueue) pop() *Packet {
	if len(q.packets) == 0 {
		return nil
	}
	pkt := q.packets[0]
	q.packets = q.packets[1:]
	q.bytes -= pkt.Size
	return pkt
}

// peek returns the head without removing it, or nil when empty.
func (q *subQueue) peek() *Packet {
	if len(q.packets) == 0 {
		return nil
	}
	return q.packets[0]
}

func (q *subQueue) len() int {
	return len(q.packets)
}

func (q *subQueue) nBytes() uint64 {
	return q.bytes
}

// headSojournMicros returns the queue delay of the oldest packet, or zero
// when the queue is empty.
func (q *subQueue) headSojournMicros(nowMicros uint64) uint64 {
	if len(q.packets) == 0 {
		return 0
	}
	return q.packets[0].sojournMicros(nowMicros)
}
