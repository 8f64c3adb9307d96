package link

import (
	"fmt"
	"sync/atomic"
)

// Stats is a snapshot of link counters.
type Stats struct {
	RxFrames       uint64 `json:"rx_frames" yaml:"rx_frames"`
	RxBytes        uint64 `json:"rx_bytes" yaml:"rx_bytes"`
	RxErrors       uint64 `json:"rx_errors" yaml:"rx_errors"`
	TxFrames       uint64 `json:"tx_frames" yaml:"tx_frames"`
	TxBytes        uint64 `json:"tx_bytes" yaml:"tx_bytes"`
	TxRejected     uint64 `json:"tx_rejected" yaml:"tx_rejected"`
	TransferErrors uint64 `json:"transfer_errors" yaml:"transfer_errors"`
	Dropped        uint64 `json:"dropped" yaml:"dropped"`
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("rx: %d (%d bytes, %d errors) tx: %d (%d bytes, %d rejected) transfer errors: %d dropped: %d",
		s.RxFrames, s.RxBytes, s.RxErrors, s.TxFrames, s.TxBytes, s.TxRejected, s.TransferErrors, s.Dropped)
}

type counters struct {
	rxFrames, rxBytes, rxErrors   atomic.Uint64
	txFrames, txBytes, txRejected atomic.Uint64
	transferErrors, dropped       atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RxFrames:       c.rxFrames.Load(),
		RxBytes:        c.rxBytes.Load(),
		RxErrors:       c.rxErrors.Load(),
		TxFrames:       c.txFrames.Load(),
		TxBytes:        c.txBytes.Load(),
		TxRejected:     c.txRejected.Load(),
		TransferErrors: c.transferErrors.Load(),
		Dropped:        c.dropped.Load(),
	}
}
