package link

import (
	"math/rand"
	"testing"
	"time"

	"github.com/arqlab/srarq/channel"
	"github.com/arqlab/srarq/engine"
)

// testSegment is a minimal Payload for exercising the link layer without
// depending on the transport package.
type testSegment struct {
	seq  int
	size int
}

func (s testSegment) SeqNum() int         { return s.seq }
func (s testSegment) TotalSizeBytes() int { return s.size }

func lossless(eng *engine.Engine) *channel.PhysicalChannel {
	params := channel.DefaultParams()
	params.PGood, params.PBad = 0, 0
	return channel.NewPhysicalChannel(eng, params, rand.New(rand.NewSource(1)))
}

func setupPair(t *testing.T, window int, ch *channel.PhysicalChannel, eng *engine.Engine) (sender, receiver *Link, delivered *[]Payload) {
	t.Helper()
	sender = NewLink(eng, ch, window, DefaultTimeout)
	receiver = NewLink(eng, ch, window, DefaultTimeout)
	sender.SetPeer(receiver)
	receiver.SetPeer(sender)

	var got []Payload
	receiver.SetDeliverFunc(func(p Payload) bool {
		got = append(got, p)
		return true
	})
	return sender, receiver, &got
}

func runToQuiescence(eng *engine.Engine, cap int) {
	for i := 0; i < cap && eng.RunStep(); i++ {
	}
}

// Scenario 1: W=1, L effectively 1024-byte segments, 10 frames, no corruption.
func TestScenario1_SingleFrameWindowNoLoss(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender, _, delivered := setupPair(t, 1, ch, eng)

	for i := 0; i < 10; i++ {
		sender.Send(testSegment{seq: i, size: 1024})
	}
	runToQuiescence(eng, 1_000_000)

	if sender.RetransmissionCount() != 0 {
		t.Fatalf("expected zero retransmissions, got %d", sender.RetransmissionCount())
	}
	if len(*delivered) != 10 {
		t.Fatalf("expected 10 delivered segments, got %d", len(*delivered))
	}
	for i, p := range *delivered {
		if p.SeqNum() != i {
			t.Fatalf("expected in-order delivery, segment %d has seq %d", i, p.SeqNum())
		}
	}
}

// Scenario 2: W=4, corrupt only the first transmission of seq=2.
func TestScenario2_SingleFrameCorruptedOnce(t *testing.T) {
	eng := engine.New()
	params := channel.DefaultParams()
	params.PGood, params.PBad = 0, 0
	ch := channel.NewPhysicalChannel(eng, params, rand.New(rand.NewSource(1)))

	sender := NewLink(eng, ch, 4, DefaultTimeout)
	receiver := NewLink(eng, ch, 4, DefaultTimeout)
	sender.SetPeer(receiver)
	receiver.SetPeer(sender)

	corruptOnce := map[int]bool{2: true}
	var delivered []Payload
	receiver.SetDeliverFunc(func(p Payload) bool {
		delivered = append(delivered, p)
		return true
	})

	// Wrap the receiver's ReceiveFromChannel via a forced-corruption shim:
	// we intercept by replacing the sender's peer with an adapter that
	// corrupts exactly the first delivery of seq 2.
	seenOnce := map[int]bool{}
	adapter := &corruptingPeer{
		real: receiver,
		shouldCorrupt: func(f *Frame) bool {
			if f.Kind != KindData || !corruptOnce[f.Seq] || seenOnce[f.Seq] {
				return false
			}
			seenOnce[f.Seq] = true
			return true
		},
	}
	sender.SetPeer(adapter)

	for i := 0; i < 8; i++ {
		sender.Send(testSegment{seq: i, size: 512})
	}
	runToQuiescence(eng, 1_000_000)

	if sender.RetransmissionCount() != 1 {
		t.Fatalf("expected exactly 1 retransmission, got %d", sender.RetransmissionCount())
	}
	if got := len(sender.RTTSamples()); got != 7 {
		t.Fatalf("expected 7 RTT samples (the 7 non-corrupted first transmissions), got %d", got)
	}
	total := 0
	for _, p := range delivered {
		total += p.TotalSizeBytes()
	}
	if total != 8*512 {
		t.Fatalf("expected all 8 segments eventually delivered, got %d bytes", total)
	}
}

// corruptingPeer wraps a real Link's ReceiveFromChannel, forcing corruption
// for frames matched by shouldCorrupt. Used only to construct deterministic
// corruption scenarios in tests; production code never does this.
type corruptingPeer struct {
	real          *Link
	shouldCorrupt func(f *Frame) bool
}

func (c *corruptingPeer) ReceiveFromChannel(f *Frame, corrupted bool) {
	if c.shouldCorrupt(f) {
		corrupted = true
	}
	c.real.ReceiveFromChannel(f, corrupted)
}

// Scenario 3: W=2, 1KB file, force ACK for seq=0 to be corrupted once.
func TestScenario3_AckCorruptedTriggersRetransmitNoDuplicateDelivery(t *testing.T) {
	eng := engine.New()
	params := channel.DefaultParams()
	params.PGood, params.PBad = 0, 0
	ch := channel.NewPhysicalChannel(eng, params, rand.New(rand.NewSource(1)))

	sender := NewLink(eng, ch, 2, DefaultTimeout)
	receiver := NewLink(eng, ch, 2, DefaultTimeout)

	var delivered []Payload
	receiver.SetDeliverFunc(func(p Payload) bool {
		delivered = append(delivered, p)
		return true
	})

	seenAck0 := false
	receiverAdapter := &corruptingPeer{
		real: receiver,
		shouldCorrupt: func(f *Frame) bool { return false },
	}
	senderAdapter := &corruptingPeer{
		real: sender,
		shouldCorrupt: func(f *Frame) bool {
			if f.Kind == KindACK && f.Seq == 0 && !seenAck0 {
				seenAck0 = true
				return true
			}
			return false
		},
	}
	sender.SetPeer(receiverAdapter)
	receiver.SetPeer(senderAdapter)

	for i := 0; i < 8; i++ {
		sender.Send(testSegment{seq: i, size: 128})
	}
	runToQuiescence(eng, 1_000_000)

	if sender.RetransmissionCount() != 1 {
		t.Fatalf("expected exactly 1 retransmission (seq 0's lost ACK), got %d", sender.RetransmissionCount())
	}
	seen := map[int]bool{}
	for _, p := range delivered {
		if seen[p.SeqNum()] {
			t.Fatalf("duplicate delivery of seq %d (I5 violated)", p.SeqNum())
		}
		seen[p.SeqNum()] = true
	}
	if len(delivered) != 8 {
		t.Fatalf("expected 8 unique deliveries, got %d", len(delivered))
	}
}

func TestDuplicateACKIsIdempotent(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender, receiver, _ := setupPair(t, 4, ch, eng)
	_ = receiver

	sender.Send(testSegment{seq: 0, size: 128})
	runToQuiescence(eng, 1000)

	baseBefore := sender.SendBase()
	rttBefore := len(sender.RTTSamples())
	retransBefore := sender.RetransmissionCount()

	// inject a duplicate ACK directly
	sender.ReceiveFromChannel(&Frame{Seq: 0, Kind: KindACK}, false)

	if sender.SendBase() != baseBefore {
		t.Fatalf("duplicate ACK altered send_base: %d -> %d", baseBefore, sender.SendBase())
	}
	if len(sender.RTTSamples()) != rttBefore {
		t.Fatalf("duplicate ACK added an RTT sample")
	}
	if sender.RetransmissionCount() != retransBefore {
		t.Fatalf("duplicate ACK altered retransmission count")
	}
}

func TestTimerFiringAfterAckIsNoOp(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender, _, _ := setupPair(t, 4, ch, eng)

	sender.Send(testSegment{seq: 0, size: 128})
	// simulate immediate ACK before the timer would fire
	sender.ReceiveFromChannel(&Frame{Seq: 0, Kind: KindACK}, false)

	before := sender.RetransmissionCount()
	sender.handleTimeout(0) // directly invoke, as if a stale timer popped
	if sender.RetransmissionCount() != before {
		t.Fatalf("timer firing after ACK must not retransmit")
	}
}

func TestBackpressureStallsWindow(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender := NewLink(eng, ch, 4, DefaultTimeout)
	receiver := NewLink(eng, ch, 4, DefaultTimeout)
	sender.SetPeer(receiver)
	receiver.SetPeer(sender)

	rejectSeq := 0
	receiver.SetDeliverFunc(func(p Payload) bool {
		return p.SeqNum() != rejectSeq
	})
	var overran []int
	receiver.SetOverrunHook(func(seq int) { overran = append(overran, seq) })

	for i := 0; i < 4; i++ {
		sender.Send(testSegment{seq: i, size: 64})
	}
	runToQuiescence(eng, 5000)

	if receiver.RcvBase() != 0 {
		t.Fatalf("window must not slide past a rejected segment, rcvBase=%d", receiver.RcvBase())
	}
	if len(overran) == 0 {
		t.Fatalf("expected the overrun hook to fire at least once")
	}
}

func TestSendReceiveWindowInvariant(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender, _, _ := setupPair(t, 4, ch, eng)

	for i := 0; i < 20; i++ {
		sender.Send(testSegment{seq: i, size: 64})
		if sender.NextSeq() < sender.SendBase() || sender.NextSeq() > sender.SendBase()+4 {
			t.Fatalf("I1 violated: base=%d next=%d window=4", sender.SendBase(), sender.NextSeq())
		}
	}
}

func TestAvgRTTZeroWhenNoSamples(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender, _, _ := setupPair(t, 1, ch, eng)
	if sender.AverageRTT() != 0 {
		t.Fatalf("expected zero average RTT with no samples")
	}
}

func TestFrameSizeAccounting(t *testing.T) {
	f := &Frame{Seq: 1, Kind: KindData, Payload: testSegment{seq: 1, size: 1032}}
	if got := f.SizeBytes(); got != HeaderBytes+1032 {
		t.Fatalf("expected %d, got %d", HeaderBytes+1032, got)
	}
	ack := &Frame{Seq: 1, Kind: KindACK}
	if got := ack.SizeBytes(); got != HeaderBytes {
		t.Fatalf("expected ACK size %d, got %d", HeaderBytes, got)
	}
}

func TestRTTWithinExpectedBound(t *testing.T) {
	eng := engine.New()
	ch := lossless(eng)
	sender, _, _ := setupPair(t, 64, ch, eng)

	sender.Send(testSegment{seq: 0, size: 4096})
	runToQuiescence(eng, 1000)

	samples := sender.RTTSamples()
	if len(samples) != 1 {
		t.Fatalf("expected 1 RTT sample, got %d", len(samples))
	}
	params := channel.DefaultParams()
	frameSize := HeaderBytes + 4096
	expected := time.Duration(float64(frameSize)*8/params.BitRateBps*1e9) +
		params.PropagationFWD + params.ProcessingDelay +
		time.Duration(float64(HeaderBytes)*8/params.BitRateBps*1e9) +
		params.PropagationREV + params.ProcessingDelay
	diff := samples[0] - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Millisecond {
		t.Fatalf("expected RTT within 1ms of %v, got %v", expected, samples[0])
	}
}
