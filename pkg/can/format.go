package can

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	idColor   = color.New(color.FgGreen).SprintfFunc()
	dataColor = color.New(color.FgHiBlue).SprintfFunc()
	errColor  = color.New(color.FgRed).SprintfFunc()
)

// String formats the frame in candump compact form, e.g. 123#AABB.
func (f Frame) String() string {
	var out strings.Builder
	if f.IsExtended() || f.IsError() {
		fmt.Fprintf(&out, "%08X#", f.ID&EFFMask)
	} else {
		fmt.Fprintf(&out, "%03X#", f.ID&SFFMask)
	}
	if f.IsRemote() {
		out.WriteByte('R')
		return out.String()
	}
	out.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	return out.String()
}

// ColorString formats the frame for terminals, with a timestamp and byte view.
func (f Frame) ColorString() string {
	var out strings.Builder
	if !f.Timestamp.IsZero() {
		out.WriteString(f.Timestamp.Format("15:04:05.000") + " ")
	}
	if f.IsError() {
		out.WriteString(errColor("ERR  0x%08X", f.ID&ErrMask))
		out.WriteString(" || " + errColor("% X", f.Payload()))
		return out.String()
	}
	out.WriteString(idColor("0x%03X", f.Identifier()))
	out.WriteString(" || " + strconv.Itoa(int(f.Len)) + " || ")
	out.WriteString(dataColor("%-23s", fmt.Sprintf("% X", f.Payload())))
	return out.String()
}

// Parse parses the candump compact form produced by String.
// Identifiers with more than 3 hex digits are extended.
func Parse(s string) (Frame, error) {
	pos := strings.IndexByte(s, '#')
	if pos <= 0 {
		return Frame{}, fmt.Errorf("invalid frame %q: missing '#'", s)
	}
	idStr, dataStr := s[:pos], s[pos+1:]
	id, err := strconv.ParseUint(idStr, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid frame id %q: %v", idStr, err)
	}
	var f Frame
	switch {
	case len(idStr) > 3:
		if uint32(id) > EFFMask {
			return Frame{}, fmt.Errorf("invalid frame id %q: out of range", idStr)
		}
		f.ID = uint32(id) | EFFFlag
	case uint32(id) > SFFMask:
		return Frame{}, fmt.Errorf("invalid frame id %q: out of range", idStr)
	default:
		f.ID = uint32(id)
	}
	if dataStr == "R" {
		f.ID |= RTRFlag
		return f, nil
	}
	data, err := hex.DecodeString(strings.Replace(dataStr, ".", "", -1))
	if err != nil {
		return Frame{}, fmt.Errorf("invalid frame data %q: %v", dataStr, err)
	}
	if len(data) > MaxDataLen {
		return Frame{}, fmt.Errorf("invalid frame data %q: more than %d bytes", dataStr, MaxDataLen)
	}
	f.Len = uint8(copy(f.Data[:], data))
	return f, nil
}
