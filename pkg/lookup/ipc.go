package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// IPC operations.
const (
	OpComplete = "complete"
	OpInfo     = "info"
	OpPing     = "ping"
)

// IPCRequest is one msgpack message sent to the ipc server:
//
//	{"id": "4f1c...", "op": "complete", "p": "where was [Q7186]", "t": 1718000000000, "l": 10}
//	{"id": "9a0e...", "op": "info", "q": "Q7186"}
type IPCRequest struct {
	ID     string `msgpack:"id"`
	Op     string `msgpack:"op"`
	Prefix string `msgpack:"p,omitempty"`
	Token  int64  `msgpack:"t,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	QID    string `msgpack:"q,omitempty"`
}

// IPCReply answers the request with the same ID. Error is set instead of a
// payload when the request failed.
type IPCReply struct {
	ID        string   `msgpack:"id"`
	Results   []Result `msgpack:"r,omitempty"`
	Count     int      `msgpack:"c"`
	Timestamp int64    `msgpack:"ts,omitempty"`
	Info      *Info    `msgpack:"i,omitempty"`
	TimeTaken int64    `msgpack:"tt,omitempty"`
	Error     string   `msgpack:"e,omitempty"`
	Code      int      `msgpack:"code,omitempty"`
}

// IPCClient multiplexes requests over a msgpack stream, usually the stdio of
// a child `qacbox ipc` process.
type IPCClient struct {
	w   io.WriteCloser
	enc *msgpack.Encoder
	wmu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan IPCReply
	done    chan struct{}
	err     error

	cancel context.CancelFunc
	g      *errgroup.Group
	cmd    *exec.Cmd
}

// NewIPCClient reads replies from r and writes requests to w until ctx ends
// or Close is called.
func NewIPCClient(ctx context.Context, r io.Reader, w io.WriteCloser) *IPCClient {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	c := &IPCClient{
		w:       w,
		enc:     msgpack.NewEncoder(w),
		pending: make(map[string]chan IPCReply),
		done:    make(chan struct{}),
		cancel:  cancel,
		g:       g,
	}

	g.Go(func() error { return c.readLoop(r) })
	g.Go(func() error {
		<-gctx.Done()
		c.wmu.Lock()
		defer c.wmu.Unlock()
		return c.w.Close()
	})
	return c
}

// StartIPC runs argv as a child process and talks to it over its stdio.
// The child's stderr is passed through for its logs.
func StartIPC(ctx context.Context, argv []string) (*IPCClient, error) {
	if len(argv) == 0 {
		return nil, errors.New("ipc: empty command")
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ipc stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ipc stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	log.Debugf("Started ipc child %s (pid %d)", argv[0], cmd.Process.Pid)

	c := NewIPCClient(ctx, stdout, stdin)
	c.cmd = cmd
	// Cancelling the outer context also ends the client's own.
	c.cancel = cancel
	return c, nil
}

func (c *IPCClient) readLoop(r io.Reader) error {
	dec := msgpack.NewDecoder(r)
	for {
		var reply IPCReply
		if err := dec.Decode(&reply); err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			c.fail(err)
			return err
		}
		c.mu.Lock()
		ch, ok := c.pending[reply.ID]
		delete(c.pending, reply.ID)
		c.mu.Unlock()
		if !ok {
			log.Debugf("Dropping ipc reply for unknown id %q", reply.ID)
			continue
		}
		ch <- reply
	}
}

// fail closes the client for every waiting and future call.
func (c *IPCClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	c.err = err
	close(c.done)
	c.cancel()
}

func (c *IPCClient) call(ctx context.Context, req IPCRequest) (IPCReply, error) {
	req.ID = uuid.NewString()
	ch := make(chan IPCReply, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return IPCReply{}, ErrClosed
	default:
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.wmu.Lock()
	err := c.enc.Encode(&req)
	c.wmu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return IPCReply{}, fmt.Errorf("ipc write: %w", err)
	}

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return reply, fmt.Errorf("ipc %s: %s (code %d)", req.Op, reply.Error, reply.Code)
		}
		return reply, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return IPCReply{}, ctx.Err()
	case <-c.done:
		return IPCReply{}, ErrClosed
	}
}

func (c *IPCClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Complete asks the server for completions.
func (c *IPCClient) Complete(ctx context.Context, req Request) (*Response, error) {
	reply, err := c.call(ctx, IPCRequest{Op: OpComplete, Prefix: req.Query, Token: req.Token, Limit: req.Limit})
	if err != nil {
		return nil, err
	}
	results := reply.Results
	if results == nil {
		results = []Result{}
	}
	return &Response{Results: results, Timestamp: reply.Timestamp}, nil
}

// Info asks the server for an entity's info.
func (c *IPCClient) Info(ctx context.Context, qid string) (Info, error) {
	reply, err := c.call(ctx, IPCRequest{Op: OpInfo, QID: qid})
	if err != nil {
		return Info{}, err
	}
	if reply.Info == nil {
		return Info{}, nil
	}
	return *reply.Info, nil
}

// Ping checks that the server answers.
func (c *IPCClient) Ping(ctx context.Context) error {
	_, err := c.call(ctx, IPCRequest{Op: OpPing})
	return err
}

// Close stops the client, closes the request stream and waits for the
// reader and, if any, the child process.
func (c *IPCClient) Close() error {
	c.cancel()
	err := c.g.Wait()
	c.fail(nil)
	if c.cmd != nil {
		// The child is killed by the cancelled context; its exit status is noise.
		_ = c.cmd.Wait()
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}
