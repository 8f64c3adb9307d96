package link

import (
	"github.com/robotalks/canlink/pkg/can"
)

// Transfer performs one synchronous exchange of len(tx) bytes.
// rx must be filled with whatever the device clocks out meanwhile.
type Transfer interface {
	Transfer(tx, rx []byte) error
}

// TransferFunc is func type of Transfer.
type TransferFunc func(tx, rx []byte) error

// Transfer implements Transfer.
func (f TransferFunc) Transfer(tx, rx []byte) error {
	return f(tx, rx)
}

// Delivery hands received frames to the network side.
// Implementations must not block for long, they run under the link lock.
type Delivery interface {
	Deliver(can.Frame)
	// DeliverBusError receives the synthesized error frame for a
	// malformed frame reported by the device.
	DeliverBusError(can.Frame)
}

// DeliveryFuncs adapts funcs to Delivery. Nil funcs are skipped.
type DeliveryFuncs struct {
	Frame    func(can.Frame)
	BusError func(can.Frame)
}

// Deliver implements Delivery.
func (d DeliveryFuncs) Deliver(f can.Frame) {
	if d.Frame != nil {
		d.Frame(f)
	}
}

// DeliverBusError implements Delivery.
func (d DeliveryFuncs) DeliverBusError(f can.Frame) {
	if d.BusError != nil {
		d.BusError(f)
	}
}

// DeliveryMux delivers to multiple Deliveries in order.
type DeliveryMux []Delivery

// Deliver implements Delivery.
func (m DeliveryMux) Deliver(f can.Frame) {
	for _, d := range m {
		d.Deliver(f)
	}
}

// DeliverBusError implements Delivery.
func (m DeliveryMux) DeliverBusError(f can.Frame) {
	for _, d := range m {
		d.DeliverBusError(f)
	}
}

// InfoSink receives diagnostic replies.
type InfoSink interface {
	FirmwareVersion(FirmwareVersion)
}

// FirmwareVersionFunc is func type of InfoSink.
type FirmwareVersionFunc func(FirmwareVersion)

// FirmwareVersion implements InfoSink.
func (f FirmwareVersionFunc) FirmwareVersion(v FirmwareVersion) {
	f(v)
}

// AckHandler is notified of device replies to sent frames.
type AckHandler interface {
	WriteResult(WriteResult)
}

// WriteResultFunc is func type of AckHandler.
type WriteResultFunc func(WriteResult)

// WriteResult implements AckHandler.
func (f WriteResultFunc) WriteResult(r WriteResult) {
	f(r)
}

// MessageHandler handles a decoded message.
// Payload aliases the receive block and is only valid during the call.
type MessageHandler interface {
	HandleMessage(*Message)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(*Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(m *Message) {
	f(m)
}

// Tracer observes every transaction, under the link lock.
// tx and rx are only valid during the call.
type Tracer interface {
	TraceTransaction(tx, rx []byte, err error)
}
