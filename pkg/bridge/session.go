package bridge

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"gopkg.in/irc.v4"

	"github.com/marmos91/ircfs/internal/logger"
	"github.com/marmos91/ircfs/pkg/config"
)

const dialTimeout = 30 * time.Second

// IRCSession is the production Session: one TCP (or TLS) connection
// driven by the IRC client library, which owns registration, nick
// tracking and ping/pong keepalive.
type IRCSession struct {
	conn   net.Conn
	client *irc.Client
}

// Dial connects to the configured server and prepares the client. The
// handler receives every inbound protocol event; the read loop does not
// start until Run is called.
func Dial(ctx context.Context, cfg *config.IRCConfig, handler irc.Handler) (*IRCSession, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	var err error
	if cfg.UseSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer}).DialContext(ctx, "tcp", cfg.Addr())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Addr())
	}
	if err != nil {
		return nil, err
	}

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:          cfg.Nickname,
		User:          cfg.Username,
		Name:          cfg.Realname,
		Pass:          cfg.Password,
		PingFrequency: cfg.PingTime,
		PingTimeout:   cfg.PingTimeout,
		SendLimit:     cfg.BurstWindow,
		SendBurst:     cfg.MaxMessagesInBurst,
		Handler:       handler,
	})

	return &IRCSession{conn: conn, client: client}, nil
}

// Run drives the session's read loop until the connection drops or ctx
// is cancelled. It blocks; callers run it on its own goroutine.
func (s *IRCSession) Run(ctx context.Context) error {
	logger.Info("session starting", logger.KeyServer, s.conn.RemoteAddr().String())
	err := s.client.RunContext(ctx)
	if err != nil && ctx.Err() == nil {
		logger.Error("session terminated", logger.KeyError, err)
	}
	return err
}

// CurrentNick returns the nickname currently held by this client, as
// tracked by the library across forced nick changes.
func (s *IRCSession) CurrentNick() string {
	return s.client.CurrentNick()
}

// WriteMessage queues a protocol message for wire transmission.
func (s *IRCSession) WriteMessage(m *irc.Message) error {
	return s.client.WriteMessage(m)
}

// Close tears down the underlying connection.
func (s *IRCSession) Close() error {
	return s.conn.Close()
}
