package transport

import (
	"errors"
)

// DataSource is the sender-side application shim: it supplies up to maxBytes
// of the next chunk to segment, returning ok=false once there is nothing
// left to send (§4.4, §4.5).
type DataSource interface {
	GetData(maxBytes int) (data []byte, ok bool)
}

// DataSink is the receiver-side application shim: it consumes bytes
// delivered in order.
type DataSink interface {
	ReceiveData(data []byte)
}

// Sender segments a DataSource's output into fixed-capacity Segments.
type Sender struct {
	source  DataSource
	nextSeq int
}

// NewSender wraps source for segmentation.
func NewSender(source DataSource) *Sender {
	return &Sender{source: source}
}

// CreateSegment pulls the next chunk of data from the source and wraps it as
// a Segment. payloadBudget is the configured sweep parameter L: the
// segment's total wire size (data plus the 8-byte transport header), not
// counting the link layer's own 24-byte header. It returns (nil, nil) once
// the source is exhausted, and an error if payloadBudget leaves no room for
// the transport header (§7.1).
func (s *Sender) CreateSegment(payloadBudget int) (*Segment, error) {
	effective := payloadBudget - HeaderBytes
	if effective <= 0 {
		return nil, errors.New("transport: frame size too small for transport header")
	}

	data, ok := s.source.GetData(effective)
	if !ok {
		return nil, nil
	}

	seg := &Segment{Seq: s.nextSeq, Data: data}
	s.nextSeq++
	return seg, nil
}

// Receiver reassembles in-order segments delivered by the link layer,
// subject to a fixed buffer capacity. Only the data portion of a segment —
// not its header — counts against the buffer (§4.4).
type Receiver struct {
	sink DataSink

	capacity  int
	usage     int
	overflows int
}

// NewReceiver constructs a Receiver with the given buffer capacity in bytes
// (§6's 256 KiB baseline, via DefaultBufferCapacity).
func NewReceiver(sink DataSink, capacity int) *Receiver {
	if capacity <= 0 {
		panic("transport: buffer capacity must be positive")
	}
	return &Receiver{sink: sink, capacity: capacity}
}

// DefaultBufferCapacity is the §6 baseline receiver buffer size.
const DefaultBufferCapacity = 256 * 1024

// Deliver is called by the link layer for each segment drained from its
// reorder buffer, strictly in sequence order. It returns false — applying
// backpressure — if admitting the segment's data would exceed the buffer
// capacity; the link layer then stalls its receive window until a future
// Deliver call on a later frame (which will retry the same data only if the
// link layer re-delivers it, since a rejected segment is never removed from
// the link's own reorder buffer).
//
// Accepted segments are accounted for synchronously: usage is incremented,
// handed to the sink, and decremented again before Deliver returns. This
// mirrors the original accounting exactly (the application is modeled as
// consuming data immediately) and is deliberately not "fixed" to track
// outstanding buffered bytes across calls — see the transport backpressure
// invariant in the project notes.
func (r *Receiver) Deliver(seg *Segment) bool {
	size := len(seg.Data)
	if r.usage+size > r.capacity {
		r.overflows++
		return false
	}

	r.usage += size
	r.sink.ReceiveData(seg.Data)
	r.usage -= size

	return true
}

// BufferOverflowCount returns the number of Deliver calls that applied
// backpressure (§6's buffer_events metric).
func (r *Receiver) BufferOverflowCount() int {
	return r.overflows
}
