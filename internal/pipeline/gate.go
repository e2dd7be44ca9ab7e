package pipeline

import "sync"

// FrameGate is a single-slot frame buffer with latest-wins semantics. The
// capture side overwrites whatever is waiting; the sampling side takes the
// newest frame or nothing. Under backpressure old frames are always the
// ones lost.
type FrameGate struct {
	mu       sync.Mutex
	frame    *Frame
	replaced uint64
}

// Offer places a frame in the slot, displacing any frame already there.
func (g *FrameGate) Offer(frame *Frame) {
	if frame == nil {
		return
	}
	g.mu.Lock()
	if g.frame != nil {
		g.replaced++
	}
	g.frame = frame
	g.mu.Unlock()
}

// Take removes and returns the waiting frame, or nil when the slot is empty.
func (g *FrameGate) Take() *Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	frame := g.frame
	g.frame = nil
	return frame
}

// Replaced counts frames that were displaced before being sampled.
func (g *FrameGate) Replaced() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.replaced
}
