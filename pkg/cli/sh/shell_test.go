package sh

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/canlink/pkg/discovery"
	"github.com/robotalks/canlink/pkg/env/client"
	"github.com/robotalks/canlink/pkg/link"
	"github.com/robotalks/canlink/pkg/mqtt"
	"github.com/robotalks/canlink/pkg/trace"
)

func newTestShell() (*Shell, *bytes.Buffer) {
	var out bytes.Buffer
	s := New(client.NewConfig()).SetOut(&out)
	s.Interactive = false
	return s, &out
}

func TestFormatMeta(t *testing.T) {
	require.Equal(t, "b1", FormatMeta(mqtt.Meta{ID: "b1"}))
	require.Equal(t, "b1 fw 1.0.0 on emu: monitor :8080",
		FormatMeta(mqtt.Meta{ID: "b1", Firmware: "1.0.0", Device: "emu:", Monitor: ":8080"}))
	require.Equal(t, "b2 pi.local.:8080 mqtt mqtt://h/",
		FormatService(&discovery.Service{ID: "b2", Host: "pi.local.", Port: 8080, MQTT: "mqtt://h/"}))
}

func TestRequiresConnection(t *testing.T) {
	s, _ := newTestShell()
	for _, cmd := range []string{"send", "stats", "fw"} {
		require.ErrorIs(t, s.Shell.Process(cmd, "123#00"), ErrNotConnected, cmd)
	}
}

func TestTraceCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.trace")
	rec, err := trace.Create(path)
	require.NoError(t, err)
	tx := make([]byte, link.BufferSize)
	msg := link.Message{Command: link.CmdGetFirmwareVersion, Seq: 9}
	_, err = link.LittleEndian.Put(tx, &msg)
	require.NoError(t, err)
	rec.TraceTransaction(tx, make([]byte, link.BufferSize), nil)
	require.NoError(t, rec.Close())

	s, out := newTestShell()
	require.NoError(t, s.Shell.Process("trace", path))
	require.True(t, strings.HasPrefix(out.String(), "#0 "))
	require.Contains(t, out.String(), "> fw-version [9]")

	out.Reset()
	require.NoError(t, s.Shell.Process("trace", path, "other-session"))
	require.Empty(t, out.String())

	require.Error(t, s.Shell.Process("trace"))
	require.Error(t, s.Shell.Process("trace", path+".missing"))
}

func TestDisconnect(t *testing.T) {
	s, _ := newTestShell()
	require.NoError(t, s.Shell.Process("disconnect"))
	require.Nil(t, s.Conn)
	require.NoError(t, s.Close())
}
