package link

import "sync/atomic"

// Sequencer allocates request sequence numbers.
// The zero value is ready to use and the first number is 1.
// Numbers wrap at 16 bits, so 0 is issued once per 65536 requests;
// the device only uses 0 to tag notifications, never to match replies.
type Sequencer struct {
	n atomic.Uint32
}

// Next allocates the next sequence number.
func (s *Sequencer) Next() uint16 {
	return uint16(s.n.Add(1))
}
