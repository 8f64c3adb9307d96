package monitor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/link"
)

func TestServerFrames(t *testing.T) {
	s := NewServer("")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/frames", "", ts.URL)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 5*time.Second, time.Millisecond)

	f := can.Frame{ID: 0x123, Len: 2, Data: [8]byte{0xaa, 0xbb}, Timestamp: link.DeviceTime(1000)}
	s.Deliver(f)
	s.DeliverBusError(can.NewBusError(link.DeviceTime(2000)))

	var ev Event
	require.NoError(t, websocket.JSON.Receive(ws, &ev))
	require.Equal(t, uint32(0x123), ev.ID)
	require.Equal(t, "aabb", ev.Data)
	require.Equal(t, "123#AABB", ev.Text)
	require.False(t, ev.Error)
	require.True(t, f.Timestamp.Equal(ev.Timestamp))

	require.NoError(t, websocket.JSON.Receive(ws, &ev))
	require.True(t, ev.Error)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return s.Clients() == 0 }, 5*time.Second, time.Millisecond)
}

func TestServerStats(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.Stats = func() link.Stats { return link.Stats{TxFrames: 7} }
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(s.Port()) + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats link.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, uint64(7), stats.TxFrames)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestServerListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(ln.Addr().String())
	require.Error(t, s.Run(context.Background()))
	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("not ready after listen failure")
	}
	require.Zero(t, s.Port())
}
