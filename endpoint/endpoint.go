// Package endpoint implements the application-layer shims of §4.5: a bulk
// byte generator on the sender side and a byte counter on the receiver
// side. Neither does anything with the bytes beyond counting them — the
// simulation only needs correct sizes and completion, not content (§2
// Non-goals).
package endpoint

// DefaultFileSizeBytes is the §6 baseline transfer size, 100 MiB.
const DefaultFileSizeBytes = 100 * 1024 * 1024

// BulkSender stands in for an application with a fixed amount of data
// queued for transmission. It implements transport.DataSource.
type BulkSender struct {
	totalBytes     int
	bytesGenerated int
}

// NewBulkSender constructs a sender with totalBytes of data to generate.
func NewBulkSender(totalBytes int) *BulkSender {
	return &BulkSender{totalBytes: totalBytes}
}

// GetData returns up to maxBytes of filler data, or ok=false once the
// configured total has been generated.
func (b *BulkSender) GetData(maxBytes int) (data []byte, ok bool) {
	if b.bytesGenerated >= b.totalBytes {
		return nil, false
	}
	remaining := b.totalBytes - b.bytesGenerated
	n := maxBytes
	if n > remaining {
		n = remaining
	}
	b.bytesGenerated += n
	return make([]byte, n), true
}

// BytesGenerated reports how much data has been handed out so far.
func (b *BulkSender) BytesGenerated() int {
	return b.bytesGenerated
}

// IsFinished reports whether the sender has generated its entire transfer.
// A bulk sender's own completion is not part of the transfer's success
// criterion (only the receiver's is, per §4.5) but is still useful for
// driving the simulation loop's termination check defensively.
func (b *BulkSender) IsFinished() bool {
	return b.bytesGenerated >= b.totalBytes
}

// ByteSink stands in for an application draining received data, counting
// bytes without retaining them. It implements transport.DataSink.
type ByteSink struct {
	totalExpected int
	bytesReceived int
}

// NewByteSink constructs a sink expecting totalExpected bytes before the
// transfer is considered complete.
func NewByteSink(totalExpected int) *ByteSink {
	return &ByteSink{totalExpected: totalExpected}
}

// ReceiveData records the arrival of len(data) bytes.
func (s *ByteSink) ReceiveData(data []byte) {
	s.bytesReceived += len(data)
}

// BytesReceived reports the running total delivered so far.
func (s *ByteSink) BytesReceived() int {
	return s.bytesReceived
}

// IsFinished reports whether the full transfer has arrived (§4.5's
// completion condition, driving the simulation's stopping criterion).
func (s *ByteSink) IsFinished() bool {
	return s.bytesReceived >= s.totalExpected
}
