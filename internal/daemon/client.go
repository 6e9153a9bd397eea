package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrClosed is returned when the daemon closes the connection.
var ErrClosed = errors.New("connection closed")

const availableTimeout = 500 * time.Millisecond

// SocketPath returns the default daemon socket path.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "meetingnote", "dictation.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "meetingnote", "dictation.sock")
}

// Available reports whether a daemon is listening at socketPath.
func Available(socketPath string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), availableTimeout)
	defer cancel()
	c, err := ConnectContext(ctx, socketPath)
	if err != nil {
		return false
	}
	c.Close()
	return true
}

// Client is one NDJSON connection to the daemon. A connection carries either
// request/response commands or, after Subscribe, the event stream.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder

	mu sync.Mutex // one command in flight
}

// Connect dials the daemon socket.
func Connect(socketPath string) (*Client, error) {
	return ConnectContext(context.Background(), socketPath)
}

// ConnectContext dials the daemon socket, giving up when ctx is done.
func ConnectContext(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return &Client{conn: conn, enc: json.NewEncoder(conn), dec: json.NewDecoder(conn)}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendCommand writes cmd and waits for its response.
func (c *Client) SendCommand(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Encode terminates each value with a newline.
	if err := c.enc.Encode(cmd); err != nil {
		return Response{}, fmt.Errorf("write %s: %w", cmd.Cmd, err)
	}
	var resp Response
	if err := c.decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", cmd.Cmd, err)
	}
	return resp, nil
}

// Subscribe turns the connection into an event stream for the named events.
// No names means every event.
func (c *Client) Subscribe(events ...string) error {
	resp, err := c.SendCommand(Command{Cmd: CmdSubscribe, Events: events})
	switch {
	case err != nil:
		return err
	case !resp.OK:
		return fmt.Errorf("subscribe: %s", resp.Error)
	}
	return nil
}

// ReadEvent blocks until the next event arrives.
func (c *Client) ReadEvent() (Event, error) {
	var ev Event
	if err := c.decode(&ev); err != nil {
		return Event{}, fmt.Errorf("read event: %w", err)
	}
	return ev, nil
}

func (c *Client) decode(v any) error {
	err := c.dec.Decode(v)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return err
}
