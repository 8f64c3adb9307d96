// Package link implements the host side of the CAN bridge link protocol.
package link

// The link is communicated between the host and the bridge microcontroller
// over a synchronous, half-duplex bus (e.g. SPI) in fixed blocks of
// BufferSize bytes. Every exchange clocks one block out and one block in
// at the same time, so the host only learns about device messages when it
// runs a transaction itself: either to send a request, or with an all-zero
// block to drain notifications after the device raises its interrupt line.
//
// Each block carries zero or more messages packed back to back:
//
//	[cmd:u8][len:u8][seq:u16][payload:len]
//
// A zero cmd byte is padding and consumes exactly one byte. Replies carry
// the seq of the request, unsolicited notifications carry seq 0.
//
// Engine serializes all transactions with a single lock. TxQueue feeds it
// outbound CAN frames from one worker in submission order and RecvTrigger
// turns interrupt notifications into drain transactions.
//
// Producer: bridge firmware
// Consumer: host
