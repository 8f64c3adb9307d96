package link

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge indicates the message doesn't fit in a transfer block.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrShortPayload indicates a reply payload is shorter than its schema.
	ErrShortPayload = errors.New("short payload")
	// ErrInvalidFrame indicates a frame that can't be sent over the link.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrQueueFull indicates the transmit queue dropped the frame.
	ErrQueueFull = errors.New("transmit queue full")
	// ErrQueueClosed indicates the transmit queue no longer accepts frames.
	ErrQueueClosed = errors.New("transmit queue closed")
)

// TransferError wraps a failure of the physical exchange.
type TransferError struct {
	Err error
}

// Error implements error.
func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer error: %v", e.Err)
}

// Unwrap returns the error from the Transfer.
func (e *TransferError) Unwrap() error {
	return e.Err
}

// RejectedError reports a frame the device failed to transmit.
type RejectedError struct {
	Seq    uint16
	Status byte
}

// Error implements error.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("frame seq %d rejected by device: status %d", e.Seq, e.Status)
}
