// Package sh provides the interactive shell talking to bridges.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/canlink/pkg/env/client"
	"github.com/robotalks/canlink/pkg/mqtt"
)

// ErrNotConnected is reported by commands requiring a bridge.
var ErrNotConnected = errors.New("not connected")

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell     *ishell.Shell
	Config    *client.Config
	Connector *mqtt.Connector
	Conn      *mqtt.Conn
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&MonitorCmd,
		&StatsCmd,
		&FirmwareCmd,
		&TraceCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *client.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SetOut redirects the output of commands.
func (s *Shell) SetOut(w io.Writer) *Shell {
	s.Shell.SetOut(w)
	return s
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// PrintJSON prints v as JSON.
func PrintJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// connector connects the broker on first use.
func (s *Shell) connector() (*mqtt.Connector, error) {
	if s.Connector == nil {
		connector, err := s.Config.NewConnector()
		if err != nil {
			return nil, err
		}
		s.Connector = connector
	}
	return s.Connector, nil
}

// Discover lists bridges on the broker.
func (s *Shell) Discover(ctx context.Context) ([]mqtt.Meta, error) {
	connector, err := s.connector()
	if err != nil {
		return nil, err
	}
	return connector.Discover(ctx)
}

// SelectBridge discovers bridges and asks for a choice.
func (s *Shell) SelectBridge(ctx context.Context) (string, error) {
	metas, err := s.Discover(ctx)
	if err != nil {
		return "", err
	}
	switch {
	case len(metas) == 0:
		return "", client.ErrNoBridge
	case len(metas) == 1:
		return metas[0].ID, nil
	case !s.Interactive:
		return "", fmt.Errorf("more than 1 bridges discovered in non-interactive mode")
	}
	items := make([]string, len(metas))
	for n, meta := range metas {
		items[n] = FormatMeta(meta)
	}
	return metas[s.Shell.MultiChoice(items, "Which one to connect?")].ID, nil
}

// Connect connects the bridge with id.
func (s *Shell) Connect(id string) error {
	connector, err := s.connector()
	if err != nil {
		return err
	}
	s.Conn = connector.Bridge(id)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", id))
	return nil
}

// Disconnect disconnects current bridge.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Close closes the broker connection.
func (s *Shell) Close() error {
	s.Disconnect()
	if s.Connector != nil {
		return s.Connector.Close()
	}
	return nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if s.AutoConnect && s.Config.BridgeID != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.BridgeID)
		}
		if err := s.Connect(s.Config.BridgeID); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.BridgeID, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	client.SetupFlags()
	flag.Parse()
	New(client.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
