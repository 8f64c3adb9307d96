package emu

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/link"
)

func TestDeviceFirmwareVersion(t *testing.T) {
	dev := New()
	dev.Version = link.FirmwareVersion{Major: 2, Minor: 5, Patch: 1}
	var versions []link.FirmwareVersion
	e := link.NewEngine(dev, nil)
	e.Info = link.FirmwareVersionFunc(func(v link.FirmwareVersion) { versions = append(versions, v) })

	require.NoError(t, e.QueryFirmwareVersion())
	require.Empty(t, versions)
	require.Equal(t, 1, dev.Pending())
	require.NoError(t, e.RunTransaction(nil))
	require.Equal(t, []link.FirmwareVersion{dev.Version}, versions)
	require.Equal(t, 2, dev.Transactions())
}

func TestDeviceSend(t *testing.T) {
	dev := New()
	dev.Status = func(f can.Frame) byte {
		if f.ID == 0x13 {
			return 3
		}
		return 0
	}
	var results []link.WriteResult
	e := link.NewEngine(dev, nil)
	e.Acks = link.WriteResultFunc(func(r link.WriteResult) { results = append(results, r) })

	for _, f := range []can.Frame{can.New(0x12, []byte{1, 2}), can.New(0x13, nil)} {
		msg, err := e.Codec.EncodeWrite(e.Seq.Next(), f)
		require.NoError(t, err)
		require.NoError(t, e.RunTransaction(&msg))
	}
	require.NoError(t, e.RunTransaction(nil))

	require.Equal(t, []can.Frame{can.New(0x12, []byte{1, 2})}, dev.Sent())
	require.Equal(t, []link.WriteResult{{Seq: 1}, {Seq: 2, Status: 3}}, results)
	require.Equal(t, uint64(1), e.Stats().TxRejected)
}

func TestDeviceInject(t *testing.T) {
	dev := New()
	var raised atomic.Int32
	dev.OnPending = func() { raised.Add(1) }
	var frames []can.Frame
	e := link.NewEngine(dev, link.DeliveryFuncs{Frame: func(f can.Frame) { frames = append(frames, f) }})

	// 15 bytes per notification, 4 fit in a block
	for i := 0; i < 6; i++ {
		dev.Inject(can.Frame{ID: uint32(i), Len: 2, Data: [8]byte{byte(i)}, Timestamp: link.DeviceTime(uint32(i))})
	}
	require.Equal(t, int32(6), raised.Load())

	require.NoError(t, e.RunTransaction(nil))
	require.Len(t, frames, 4)
	require.Equal(t, 2, dev.Pending())
	require.Equal(t, int32(7), raised.Load())

	require.NoError(t, e.RunTransaction(nil))
	require.Len(t, frames, 6)
	require.Zero(t, dev.Pending())
	require.Equal(t, int32(7), raised.Load())
	for i, f := range frames {
		require.Equal(t, uint32(i), f.ID)
	}
}

func TestDeviceMalformed(t *testing.T) {
	dev := New()
	var busErrors []can.Frame
	e := link.NewEngine(dev, link.DeliveryFuncs{BusError: func(f can.Frame) { busErrors = append(busErrors, f) }})
	dev.InjectMessage(link.Message{Command: link.CmdCANReceiveFrame, Payload: []byte{1, 2, 3}})
	require.NoError(t, e.RunTransaction(nil))
	require.Equal(t, []can.Frame{can.NewBusError(time.Time{})}, busErrors)
}

func TestDeviceSentFramesFull(t *testing.T) {
	dev := New()
	sentCh := dev.SentFrames(1)
	e := link.NewEngine(dev, nil)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 3; i++ {
			msg, err := e.Codec.EncodeWrite(e.Seq.Next(), can.New(uint32(i), nil))
			if err == nil {
				err = e.RunTransaction(&msg)
			}
			if err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("transfer blocked on sent frames")
	}
	require.Equal(t, can.New(0, nil), <-sentCh)
	require.Len(t, dev.Sent(), 3)
}
