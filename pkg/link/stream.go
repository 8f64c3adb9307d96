package link

// Stream iterates the messages packed in a received block.
//
// Padding bytes are skipped one at a time. The stream ends at the end of
// the buffer or at the first message whose header or payload would overrun
// the buffer; such an incomplete message is dropped without error since
// the device pads unused block space.
type Stream struct {
	codec Codec
	buf   []byte
	off   int
}

// NewStream creates a Stream over buf using the little endian codec.
func NewStream(buf []byte) *Stream {
	return LittleEndian.DecodeStream(buf)
}

// DecodeStream creates a Stream over buf.
func (c Codec) DecodeStream(buf []byte) *Stream {
	return &Stream{codec: c, buf: buf}
}

// Next returns the next message. Payload aliases the underlying buffer.
func (s *Stream) Next() (msg Message, ok bool) {
	for s.off < len(s.buf) {
		if Command(s.buf[s.off]) == CmdPadding {
			s.off++
			continue
		}
		left := s.buf[s.off:]
		if len(left) < HeaderSize {
			break
		}
		size := HeaderSize + int(left[1])
		if size > len(left) {
			break
		}
		msg.Command = Command(left[0])
		msg.Seq = s.codec.order().Uint16(left[2:])
		msg.Payload = left[HeaderSize:size:size]
		s.off += size
		return msg, true
	}
	s.off = len(s.buf)
	return msg, false
}

// Offset returns the number of bytes consumed so far.
func (s *Stream) Offset() int {
	return s.off
}

// Reset restarts the stream from the beginning of the buffer.
func (s *Stream) Reset() {
	s.off = 0
}

// Messages decodes all complete messages in buf. Payloads are copied.
func (c Codec) Messages(buf []byte) (msgs []Message) {
	s := c.DecodeStream(buf)
	for msg, ok := s.Next(); ok; msg, ok = s.Next() {
		msg.Payload = append([]byte(nil), msg.Payload...)
		msgs = append(msgs, msg)
	}
	return
}
