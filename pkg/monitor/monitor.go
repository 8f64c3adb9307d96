// Package monitor serves link traffic to websocket clients.
package monitor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/canlink/pkg/can"
	"github.com/robotalks/canlink/pkg/framework"
	"github.com/robotalks/canlink/pkg/link"
)

// Event is the JSON message sent to clients for each frame.
type Event struct {
	ID        uint32    `json:"id"`
	Data      string    `json:"data"`
	Error     bool      `json:"error,omitempty"`
	Timestamp time.Time `json:"ts"`
	Text      string    `json:"text"`
}

// NewEvent creates the Event of a frame.
func NewEvent(f can.Frame) Event {
	return Event{
		ID:        f.ID,
		Data:      hex.EncodeToString(f.Payload()),
		Error:     f.IsError(),
		Timestamp: f.Timestamp,
		Text:      f.String(),
	}
}

// DefaultClientBacklog is the number of events buffered per client.
const DefaultClientBacklog = 64

// Server broadcasts delivered frames to websocket clients on /frames and
// serves link statistics on /stats.
type Server struct {
	Addr  string
	Stats func() link.Stats

	lock    sync.Mutex
	clients map[chan Event]struct{}
	ln      net.Listener
	readyCh chan struct{}
}

// NewServer creates a Server.
func NewServer(addr string) *Server {
	return &Server{Addr: addr, clients: make(map[chan Event]struct{}), readyCh: make(chan struct{})}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "monitor"
}

// Deliver implements link.Delivery. Slow clients miss events.
func (s *Server) Deliver(f can.Frame) {
	ev := NewEvent(f)
	s.lock.Lock()
	defer s.lock.Unlock()
	for ch := range s.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// DeliverBusError implements link.Delivery.
func (s *Server) DeliverBusError(f can.Frame) {
	s.Deliver(f)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/frames", websocket.Handler(s.serveFrames))
	mux.HandleFunc("/stats", s.serveStats)
	return mux
}

// Ready is closed once Run started listening or failed to.
func (s *Server) Ready() <-chan struct{} {
	return s.readyCh
}

// Port returns the listening port once Run started listening,
// or 0 if it failed to listen.
func (s *Server) Port() int {
	<-s.readyCh
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		close(s.readyCh)
		return err
	}
	s.ln = ln
	close(s.readyCh)
	glog.Infof("monitor listening on %s", ln.Addr())
	srv := &http.Server{Handler: s.Handler()}
	return framework.RunWithContextCancel(ctx, func() { srv.Close() }, func() error {
		return srv.Serve(ln)
	})
}

func (s *Server) serveFrames(ws *websocket.Conn) {
	ch := make(chan Event, DefaultClientBacklog)
	s.lock.Lock()
	s.clients[ch] = struct{}{}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.clients, ch)
		s.lock.Unlock()
	}()

	// reads only detect the client going away
	closedCh := make(chan struct{})
	go func() {
		var msg []byte
		for websocket.Message.Receive(ws, &msg) == nil {
		}
		close(closedCh)
	}()

	glog.V(2).Infof("monitor client %s connected", ws.Request().RemoteAddr)
	for {
		select {
		case <-closedCh:
			return
		case ev := <-ch:
			if err := websocket.JSON.Send(ws, &ev); err != nil {
				glog.V(2).Infof("monitor client %s: %v", ws.Request().RemoteAddr, err)
				return
			}
		}
	}
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	var stats link.Stats
	if s.Stats != nil {
		stats = s.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&stats)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}
