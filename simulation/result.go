package simulation

import "time"

// Row is one line of the sweep's result set (§6's row schema). Field names
// follow Go naming conventions; internal/resultio maps them onto its own CSV
// header (w, l, run_id, goodput_mbps, ...).
type Row struct {
	W               int
	L               int
	RunID           int
	GoodputMbps     float64
	Retransmissions int
	AvgRTT          time.Duration
	Utilization     float64
	BufferEvents    int
	Duration        time.Duration

	// TimedOut records whether the run hit the 1000-simulated-second cap
	// instead of completing the transfer. Not part of the core §6 schema;
	// carried alongside it so a sweep can distinguish a slow-but-complete
	// run from one that never finished, the way the original driver's
	// logs (but not its CSV) did.
	TimedOut bool
}
