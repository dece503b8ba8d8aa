package link

import (
	"time"

	"github.com/arqlab/srarq/channel"
	"github.com/arqlab/srarq/engine"
	"github.com/arqlab/srarq/simtime"
)

// DefaultTimeout is the fixed per-frame retransmission timer (§6). This spec
// does not implement adaptive timeout estimation.
const DefaultTimeout = simtime.VirtualTime(100 * time.Millisecond)

// Link is one endpoint of a Selective Repeat ARQ connection. It carries both
// the sender-side state (send window, timers, RTT samples) and the
// receiver-side state (reorder buffer) described in §3, mirroring the
// original reference implementation's single LinkLayer class: in this
// workload one Link instance only ever originates DATA (the bulk sender)
// and the other only ever originates ACKs back, but nothing here assumes
// that — either Link could do both.
type Link struct {
	eng       *engine.Engine
	ch        *channel.PhysicalChannel
	window    int
	timeout   simtime.VirtualTime
	onOverrun func(seq int) // test/instrumentation hook, nil in normal operation

	// sender state
	sendBuffer []Payload
	nextSeq    int
	sendBase   int
	inflight   map[int]*Frame
	acked      map[int]bool
	timers     map[int]engine.Handle
	sendTimes  map[int]simtime.VirtualTime
	rttSamples []time.Duration
	retransmit int

	// receiver state
	rcvBase   int
	rcvBuffer map[int]Payload

	peer    peerLink
	deliver func(Payload) bool
}

// peerLink is the far end of a Link's physical channel. In normal operation
// this is always another *Link, but tests may substitute a wrapper to
// inject deterministic corruption without touching PhysicalChannel's own
// randomness.
type peerLink interface {
	ReceiveFromChannel(frame *Frame, corrupted bool)
}

// NewLink constructs a Link with an empty send/receive window. Callers must
// call SetPeer (always) and SetDeliverFunc (only on the link whose receiver
// side feeds a transport shim) before any traffic flows.
func NewLink(eng *engine.Engine, ch *channel.PhysicalChannel, window int, timeout simtime.VirtualTime) *Link {
	if window <= 0 {
		panic("link: window size must be positive")
	}
	return &Link{
		eng:       eng,
		ch:        ch,
		window:    window,
		timeout:   timeout,
		inflight:  map[int]*Frame{},
		acked:     map[int]bool{},
		timers:    map[int]engine.Handle{},
		sendTimes: map[int]simtime.VirtualTime{},
		rcvBuffer: map[int]Payload{},
	}
}

// SetPeer wires this link's far end — whatever will receive everything this
// link transmits. Always another *Link in production.
func (l *Link) SetPeer(peer peerLink) {
	l.peer = peer
}

// SetOverrunHook installs a callback invoked whenever the receive side halts
// window sliding because the transport shim rejected a segment. Used only by
// tests that need to observe backpressure without inspecting internals.
func (l *Link) SetOverrunHook(f func(seq int)) {
	l.onOverrun = f
}

// SetDeliverFunc wires the transport shim's backpressure-aware accept
// function, called for each in-order segment the receive side drains from
// its reorder buffer. A Link with no deliver func configured accepts
// everything unconditionally (used on a link that never plays the receiver
// role).
func (l *Link) SetDeliverFunc(f func(Payload) bool) {
	l.deliver = f
}

// Send appends payload to the send buffer and attempts to transmit
// immediately if the window has room.
func (l *Link) Send(payload Payload) {
	l.sendBuffer = append(l.sendBuffer, payload)
	l.pump()
}

// pump transmits queued segments while the window is open (§4.3).
func (l *Link) pump() {
	for len(l.sendBuffer) > 0 && l.nextSeq < l.sendBase+l.window {
		payload := l.sendBuffer[0]
		l.sendBuffer = l.sendBuffer[1:]

		seq := payload.SeqNum()
		frame := &Frame{Seq: seq, Kind: KindData, Payload: payload}
		l.inflight[seq] = frame
		l.nextSeq++

		l.transmitData(frame)
	}
}

// transmitData records the first-transmission timestamp (for RTT sampling),
// (re)starts the per-frame timeout timer, and hands the frame to the
// physical channel.
func (l *Link) transmitData(frame *Frame) {
	if _, recorded := l.sendTimes[frame.Seq]; !recorded {
		l.sendTimes[frame.Seq] = l.eng.Now()
	}
	l.startTimer(frame.Seq)
	l.transmitRaw(frame)
}

func (l *Link) startTimer(seq int) {
	if h, ok := l.timers[seq]; ok {
		h.Cancel()
	}
	l.timers[seq] = l.eng.Schedule(l.timeout, func() {
		l.handleTimeout(seq)
	})
}

// handleTimeout fires when a frame's retransmission timer expires. A no-op
// if the frame has already been acknowledged — cancellation on ACK makes
// this case rare in practice but is not relied upon for correctness (§5).
func (l *Link) handleTimeout(seq int) {
	if l.acked[seq] {
		return
	}
	frame, ok := l.inflight[seq]
	if !ok {
		return
	}
	frame.RetryCount++
	l.retransmit++
	l.transmitData(frame)
}

// transmitRaw sends frame over the shared physical channel without touching
// any sender bookkeeping — used for both retransmissions (via transmitData)
// and for ACKs, which carry no timer of their own.
func (l *Link) transmitRaw(frame *Frame) {
	dir := channel.FWD
	if frame.Kind == KindACK {
		dir = channel.REV
	}
	peer := l.peer
	l.ch.Transmit(frame.SizeBytes(), dir, func(corrupted bool) {
		peer.ReceiveFromChannel(frame, corrupted)
	})
}

// ReceiveFromChannel is invoked by the physical channel's delivery callback.
// A corrupted frame (DATA or ACK) is dropped silently; the sender will time
// out and retransmit (§4.3, §7.2).
func (l *Link) ReceiveFromChannel(frame *Frame, corrupted bool) {
	if corrupted {
		return
	}
	switch frame.Kind {
	case KindACK:
		l.receiveAck(frame.Seq)
	case KindData:
		l.handleIncomingData(frame)
	}
}

// receiveAck implements §4.3's ACK handling, including the idempotent
// duplicate-ACK case (R3): a second ACK for an already-acked seq finds no
// sendTimes entry and contributes no RTT sample.
func (l *Link) receiveAck(seq int) {
	if sendTime, ok := l.sendTimes[seq]; ok {
		l.rttSamples = append(l.rttSamples, l.eng.Now().Since(sendTime))
		delete(l.sendTimes, seq)
	}

	l.acked[seq] = true
	if h, ok := l.timers[seq]; ok {
		h.Cancel()
		delete(l.timers, seq)
	}

	if seq == l.sendBase {
		for l.acked[l.sendBase] {
			delete(l.inflight, l.sendBase)
			delete(l.acked, l.sendBase)
			l.sendBase++
		}
		l.pump()
	}
}

// handleIncomingData implements §4.3's receiver contract: always ACK, buffer
// if in-window, then drain in-order segments to the transport shim, stopping
// (without sliding the window) the moment the shim applies backpressure.
func (l *Link) handleIncomingData(frame *Frame) {
	seq := frame.Seq
	l.sendAck(seq)

	if seq < l.rcvBase {
		return // duplicate of an already-delivered frame; the ACK above suffices
	}
	if seq >= l.rcvBase+l.window {
		return // out of window; ACKed but not buffered
	}
	if _, exists := l.rcvBuffer[seq]; !exists {
		l.rcvBuffer[seq] = frame.Payload
	}

	for {
		payload, ok := l.rcvBuffer[l.rcvBase]
		if !ok {
			break
		}
		if l.deliver != nil && !l.deliver(payload) {
			if l.onOverrun != nil {
				l.onOverrun(l.rcvBase)
			}
			break
		}
		delete(l.rcvBuffer, l.rcvBase)
		l.rcvBase++
	}
}

func (l *Link) sendAck(seq int) {
	l.transmitRaw(&Frame{Seq: seq, Kind: KindACK})
}

// RetransmissionCount returns the number of timeout-triggered retransmissions
// this link has sent (§6's retransmissions metric, sampled on the sender).
func (l *Link) RetransmissionCount() int {
	return l.retransmit
}

// RTTSamples returns the recorded round-trip samples in the order collected.
func (l *Link) RTTSamples() []time.Duration {
	out := make([]time.Duration, len(l.rttSamples))
	copy(out, l.rttSamples)
	return out
}

// AverageRTT returns the arithmetic mean RTT, or zero if no samples exist.
func (l *Link) AverageRTT() time.Duration {
	if len(l.rttSamples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range l.rttSamples {
		total += s
	}
	return total / time.Duration(len(l.rttSamples))
}

// SendBase, NextSeq, and InflightCount expose sender invariants (I1/I2) for tests.
func (l *Link) SendBase() int { return l.sendBase }
func (l *Link) NextSeq() int  { return l.nextSeq }
func (l *Link) InflightCount() int {
	return len(l.inflight)
}

// RcvBase exposes the receiver window base for invariant tests (I3).
func (l *Link) RcvBase() int { return l.rcvBase }

// RcvBufferSeqs exposes the currently buffered out-of-order sequence numbers
// for invariant tests (I3).
func (l *Link) RcvBufferSeqs() []int {
	out := make([]int, 0, len(l.rcvBuffer))
	for seq := range l.rcvBuffer {
		out = append(out, seq)
	}
	return out
}
