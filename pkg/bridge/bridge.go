// Package bridge couples the in-memory tree to a live IRC session.
//
// Three long-lived workers run next to the kernel-driven adapter calls:
// an inbound worker consuming protocol events (driven by the session's
// read loop), an outbound worker forwarding send-requests to the wire,
// and a tree-mutation worker draining the command channel. All
// structural tree mutations flow through the command channel so the
// filesystem adapter and the inbound worker never race on structure.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gopkg.in/irc.v4"

	"github.com/marmos91/ircfs/internal/logger"
	"github.com/marmos91/ircfs/pkg/config"
	"github.com/marmos91/ircfs/pkg/metrics"
	"github.com/marmos91/ircfs/pkg/tree"
)

// Well-known tree paths. This implementation fixes the send/receive
// naming everywhere.
const (
	ControlPath = "/send"
	SessionLog  = "/receive"
	RawLog      = "/raw"

	sendName    = "send"
	receiveName = "receive"
)

// ErrClosed is returned for sends into a bridge that has shut down.
var ErrClosed = errors.New("bridge closed")

// Session is the live connection to the chat network. The concrete
// implementation wraps the IRC client library; tests substitute fakes.
type Session interface {
	// CurrentNick returns the nickname currently held by this client.
	CurrentNick() string

	// WriteMessage queues a protocol message for wire transmission.
	WriteMessage(m *irc.Message) error
}

// Command is a bridge command describing one tree mutation. Commands
// are applied in FIFO order by the single tree-mutation worker.
type Command interface {
	apply(b *Bridge)
}

// CreateDir materializes a directory (and its ancestors) together with
// its send/receive file pair.
type CreateDir struct {
	Path string
}

func (c CreateDir) apply(b *Bridge) {
	if err := Materialize(b.tree, c.Path); err != nil {
		logger.Warn("failed to materialize directory", logger.KeyPath, c.Path, logger.KeyError, err)
	}
}

// Message appends bytes to the file at Path.
type Message struct {
	Path string
	Data []byte
}

func (m Message) apply(b *Bridge) {
	if err := b.tree.Append(m.Path, m.Data); err != nil {
		// Malformed or late events are dropped; the session continues.
		logger.Debug("dropped append", logger.KeyPath, m.Path, logger.KeyError, err)
		return
	}
	metrics.BytesAppended.Add(float64(len(m.Data)))
}

// Materialize idempotently creates the directory at path with its
// send/receive pair. Used by the mutation worker and by mount-time
// initialization.
func Materialize(t *tree.Tree, path string) error {
	created := !t.Exists(path)
	if err := t.MkParents(path); err != nil {
		return err
	}
	if created {
		metrics.TreeNodes.WithLabelValues("dir").Inc()
	}
	if err := t.MkROFile(path + "/" + receiveName); err != nil && tree.CodeOf(err) != tree.ErrAlreadyExists {
		return err
	} else if err == nil {
		metrics.TreeNodes.WithLabelValues("file").Inc()
	}
	if err := t.MkRWFile(path + "/" + sendName); err != nil && tree.CodeOf(err) != tree.ErrAlreadyExists {
		return err
	} else if err == nil {
		metrics.TreeNodes.WithLabelValues("file").Inc()
	}
	return nil
}

// Bridge owns the session handle and the two intra-process channels:
// tree-mutation commands and outbound send-requests.
type Bridge struct {
	tree    *tree.Tree
	session Session
	cfg     *config.IRCConfig

	commands chan Command
	sends    chan *irc.Message

	ctx context.Context
	wg  sync.WaitGroup

	// clock is swapped out by tests for deterministic timestamps
	clock func() time.Time
}

// New wires a bridge between the tree and a session. Start must be
// called before the bridge accepts work.
func New(t *tree.Tree, s Session, cfg *config.IRCConfig) *Bridge {
	return &Bridge{
		tree:     t,
		session:  s,
		cfg:      cfg,
		commands: make(chan Command, 64),
		sends:    make(chan *irc.Message, 64),
		clock:    time.Now,
	}
}

// Start launches the tree-mutation and outbound workers. They exit when
// ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	b.ctx = ctx
	b.wg.Add(2)
	go b.runMutator()
	go b.runOutbound()
}

// Wait blocks until the workers have exited.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// enqueueCommand queues a tree mutation, failing once the bridge is
// gone.
func (b *Bridge) enqueueCommand(cmd Command) error {
	select {
	case b.commands <- cmd:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

// enqueueSend queues an outbound protocol message.
func (b *Bridge) enqueueSend(m *irc.Message) error {
	select {
	case b.sends <- m:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

// runMutator is the only task performing structural mutations on the
// tree. Draining order is FIFO, so a CreateDir for a path is applied
// before any Message targeting its files.
func (b *Bridge) runMutator() {
	defer b.wg.Done()
	for {
		select {
		case cmd := <-b.commands:
			cmd.apply(b)
		case <-b.ctx.Done():
			return
		}
	}
}

// runOutbound forwards send-requests to the session and mirrors each
// outbound chat message into the relevant receive file so users see
// their own messages.
func (b *Bridge) runOutbound() {
	defer b.wg.Done()
	for {
		select {
		case m := <-b.sends:
			b.mirrorOutbound(m)
			if err := b.session.WriteMessage(m); err != nil {
				logger.Warn("failed to send message", logger.KeyCommand, m.Command, logger.KeyError, err)
				continue
			}
			metrics.OutboundMessages.WithLabelValues(m.Command).Inc()
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Bridge) mirrorOutbound(m *irc.Message) {
	if m.Command != "PRIVMSG" || len(m.Params) < 2 {
		return
	}
	target := m.Params[0]
	line := fmt.Sprintf("%s %s: %s\n", b.timestamp(), b.session.CurrentNick(), m.Trailing())
	if err := b.enqueueCommand(Message{Path: "/" + target + "/" + receiveName, Data: []byte(line)}); err != nil {
		logger.Debug("dropped outbound mirror", logger.KeyTarget, target, logger.KeyError, err)
	}
}

// timestamp formats the local wall-clock time used to prefix every log
// line.
func (b *Bridge) timestamp() string {
	return b.clock().Format("15:04:05")
}
