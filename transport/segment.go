// Package transport implements the transport-layer shim of §4.4:
// segmentation on the sender side, and a bounded reassembly buffer with
// backpressure on the receiver side. It sits directly on top of the link
// layer's send/receive window, supplying the Payload values link.Link
// carries as frame contents.
package transport

// HeaderBytes is the fixed transport-layer header overhead (§6), distinct
// from the link layer's 24-byte header.
const HeaderBytes = 8

// Segment is one unit of application data wrapped with a transport sequence
// number. It implements link.Payload without importing the link package,
// matching that package's own decoupling from transport.
type Segment struct {
	Seq  int
	Data []byte
}

// SeqNum satisfies link.Payload.
func (s *Segment) SeqNum() int { return s.Seq }

// TotalSizeBytes satisfies link.Payload: the wire size of a segment is its
// data plus the transport header, matching the original TransportSegment's
// size_bytes calculation.
func (s *Segment) TotalSizeBytes() int {
	return len(s.Data) + HeaderBytes
}
