package dualpi2

import (
	"io"

	"github.com/chuckpreslar/emission"
)

// Telemetry event identifiers. Listener signatures:
//
//	EvtProbUpdate  func(pCL, pC, base float64)
//	EvtSojourn     func(cls Class, sojournMicros uint64)
//	EvtMark        func(pkt *Packet)
//	EvtDrop        func(cls Class, pkt *Packet)
//	EvtForcedDrop  func(pkt *Packet)
//
// Events fire synchronously inside engine calls; listeners must not call
// back into the engine.
const (
	EvtProbUpdate = "probupdate"
	EvtSojourn    = "sojourn"
	EvtMark       = "mark"
	EvtDrop       = "drop"
	EvtForcedDrop = "forceddrop"
)

// Emitter is a simple event emitter.
type Emitter struct {
	*emission.Emitter
}

// NewEmitter creates a simple event emitter.
func NewEmitter() *Emitter {
	return &Emitter{Emitter: emission.NewEmitter()}
}

// On registers a callback for an event.
// Returns an io.Closer that cancels the callback registration.
func (e *Emitter) On(event, listener interface{}) io.Closer {
	e.Emitter.On(event, listener)
	return canceler{e.Emitter, event, listener}
}

type canceler struct {
	emitter  *emission.Emitter
	event    interface{}
	listener interface{}
}

func (c canceler) Close() error {
	c.emitter.Off(c.event, c.listener)
	return nil
}

// Telemetry exposes the engine's event emitter for observation. Values are
// point-in-time and advisory; nothing in the engine depends on listeners.
func (d *DualPi2) Telemetry() *Emitter {
	return d.emitter
}
