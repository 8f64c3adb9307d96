// Package trace records link transactions to a CBOR file.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/canlink/pkg/link"
)

// Event is one recorded transaction.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Session   string    `cbor:"2,keyasint"`
	Index     uint64    `cbor:"3,keyasint"`
	Tx        []byte    `cbor:"4,keyasint"`
	Rx        []byte    `cbor:"5,keyasint"`
	Err       string    `cbor:"6,keyasint,omitempty"`
}

// Failed reports whether the transfer failed.
func (e *Event) Failed() bool {
	return e.Err != ""
}

// Format renders the messages of both blocks, one per line.
func (e *Event) Format(codec link.Codec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s", e.Index, e.Timestamp.Format("15:04:05.000000"))
	if e.Failed() {
		fmt.Fprintf(&sb, " error: %s", e.Err)
	}
	sb.WriteByte('\n')
	for _, m := range codec.Messages(e.Tx) {
		fmt.Fprintf(&sb, "  > %s [%d] % x\n", m.Command, m.Seq, m.Payload)
	}
	if e.Failed() {
		return sb.String()
	}
	for _, m := range codec.Messages(e.Rx) {
		fmt.Fprintf(&sb, "  < %s [%d] % x\n", m.Command, m.Seq, m.Payload)
	}
	return sb.String()
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("trace encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("trace decoder mode: %v", err))
	}
}

// Recorder writes events to w. It implements link.Tracer.
type Recorder struct {
	Session string

	lock    sync.Mutex
	w       io.Writer
	enc     *cbor.Encoder
	index   uint64
	errored bool
}

// NewRecorder creates a Recorder with a new session ID.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{Session: uuid.New().String(), w: w, enc: encMode.NewEncoder(w)}
}

// Create creates a Recorder appending to the file at path.
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewRecorder(f), nil
}

// TraceTransaction implements link.Tracer.
func (r *Recorder) TraceTransaction(tx, rx []byte, err error) {
	ev := Event{
		Timestamp: time.Now(),
		Session:   r.Session,
		Tx:        append([]byte(nil), tx...),
		Rx:        append([]byte(nil), rx...),
	}
	if err != nil {
		ev.Err = err.Error()
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.enc == nil {
		return
	}
	ev.Index = r.index
	r.index++
	if err := r.enc.Encode(&ev); err != nil && !r.errored {
		// reported once, recording must not disturb the link
		r.errored = true
		glog.Errorf("trace: %v", err)
	}
}

// Count returns the number of recorded events.
func (r *Recorder) Count() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.index
}

// Close stops recording and closes the writer if it's an io.Closer.
func (r *Recorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.enc == nil {
		return nil
	}
	r.enc = nil
	if c, ok := r.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader reads events.
type Reader struct {
	Session string

	r   io.Reader
	dec *cbor.Decoder
}

// NewReader creates a Reader from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, dec: decMode.NewDecoder(r)}
}

// Open opens a trace file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReader(f), nil
}

// Next returns the next event, of Session if it's set.
// It returns io.EOF at the end.
func (r *Reader) Next() (Event, error) {
	for {
		var ev Event
		if err := r.dec.Decode(&ev); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return ev, fmt.Errorf("truncated trace: %w", err)
			}
			return ev, err
		}
		if r.Session == "" || ev.Session == r.Session {
			return ev, nil
		}
	}
}

// ReadAll reads the remaining events.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// Close closes the underlying reader if it's an io.Closer.
func (r *Reader) Close() error {
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
