package channel

import (
	"math/rand"

	"github.com/arqlab/srarq/engine"
	"github.com/arqlab/srarq/simtime"
)

// Direction distinguishes the forward (sender -> receiver) path from the
// reverse (ACK) path. Both share the same transmitter and Gilbert–Elliot
// state, but have independent propagation delay and receiver-processing
// busy-until clocks.
type Direction int

const (
	FWD Direction = iota
	REV
)

// PhysicalChannel accounts for serialization, propagation, and processing
// delay, and decides whether each transmitted frame is corrupted. One
// instance is shared by both directions of a single simulated link — its
// Gilbert–Elliot state and its "busy until" bottleneck clocks are
// deliberately shared, matching §3's ChannelState and §4.2's three busy-until
// scalars. It holds no reference to any other simulation's state, so
// multiple PhysicalChannels (one per concurrently running simulation.Run
// call) are completely independent.
type PhysicalChannel struct {
	eng    *engine.Engine
	params Params
	ge     *geChannel

	txBusyUntil simtime.VirtualTime
	rxBusyUntil [2]simtime.VirtualTime // indexed by Direction
}

// NewPhysicalChannel constructs a channel driven by eng's clock, using rng as
// its single source of randomness for both the geometric jump-ahead draws and
// the per-run uniform corruption draw, consumed in a fixed order so that
// identical seeds reproduce identical runs (§9, R2).
func NewPhysicalChannel(eng *engine.Engine, params Params, rng *rand.Rand) *PhysicalChannel {
	return &PhysicalChannel{
		eng:         eng,
		params:      params,
		ge:          newGEChannel(params, rng),
		txBusyUntil: simtime.Zero,
		rxBusyUntil: [2]simtime.VirtualTime{simtime.Zero, simtime.Zero},
	}
}

// Transmit computes the delivery time for a frame of sizeBytes bytes sent in
// direction dir, decides corruption via the Gilbert–Elliot model, and
// schedules deliver(corrupted) to run at that time. The same accounting path
// serves both DATA and ACK frames — callers distinguish them only by which
// direction and which deliver callback they pass.
func (c *PhysicalChannel) Transmit(sizeBytes int, dir Direction, deliver func(corrupted bool)) {
	if sizeBytes <= 0 {
		panic("channel: frame size must be positive")
	}

	now := c.eng.Now()

	txStart := maxTime(now, c.txBusyUntil)
	serialization := simtime.VirtualTime(float64(sizeBytes) * 8 / c.params.BitRateBps * 1e9)
	txEnd := txStart + serialization
	c.txBusyUntil = txEnd

	var prop simtime.VirtualTime
	if dir == FWD {
		prop = simtime.VirtualTime(c.params.PropagationFWD.Nanoseconds())
	} else {
		prop = simtime.VirtualTime(c.params.PropagationREV.Nanoseconds())
	}
	rxIn := txEnd + prop

	rxFree := c.rxBusyUntil[dir]
	procStart := maxTime(rxIn, rxFree)
	delivery := procStart + simtime.VirtualTime(c.params.ProcessingDelay.Nanoseconds())
	c.rxBusyUntil[dir] = delivery

	corrupted := c.ge.corrupted(sizeBytes)

	delay := delivery - now
	c.eng.Schedule(delay, func() {
		deliver(corrupted)
	})
}

func maxTime(a, b simtime.VirtualTime) simtime.VirtualTime {
	if a.After(b) {
		return a
	}
	return b
}
