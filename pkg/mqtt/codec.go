package mqtt

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"

	"github.com/robotalks/canlink/pkg/can"
	pb "github.com/robotalks/canlink/pkg/proto/canlink/v1"
)

// EncodeFrame serializes a frame as canlink.v1.Frame.
func EncodeFrame(f can.Frame) ([]byte, error) {
	msg := &pb.Frame{Id: f.ID, Data: append([]byte(nil), f.Payload()...)}
	if !f.Timestamp.IsZero() {
		ts, err := ptypes.TimestampProto(f.Timestamp)
		if err != nil {
			return nil, err
		}
		msg.Timestamp = ts
	}
	return proto.Marshal(msg)
}

// DecodeFrame parses a canlink.v1.Frame.
func DecodeFrame(payload []byte) (can.Frame, error) {
	var msg pb.Frame
	if err := proto.Unmarshal(payload, &msg); err != nil {
		return can.Frame{}, err
	}
	if len(msg.Data) > can.MaxDataLen {
		return can.Frame{}, fmt.Errorf("frame data too long: %d", len(msg.Data))
	}
	f := can.New(msg.Id, msg.Data)
	if msg.Timestamp != nil {
		ts, err := ptypes.Timestamp(msg.Timestamp)
		if err != nil {
			return can.Frame{}, err
		}
		f.Timestamp = ts.In(time.Local)
	}
	return f, nil
}
