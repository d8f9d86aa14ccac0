package bridge

import (
	"fmt"
	"strings"

	"gopkg.in/irc.v4"

	"github.com/marmos91/ircfs/internal/logger"
	"github.com/marmos91/ircfs/pkg/metrics"
)

// HandleMessage is the inbound worker body: it consumes one protocol
// event from the session and emits zero or more bridge commands. It is
// invoked from the session's read loop.
func (b *Bridge) HandleMessage(m *irc.Message) {
	metrics.InboundEvents.WithLabelValues(m.Command).Inc()
	ts := b.timestamp()

	// Every inbound event lands verbatim, timestamped, in the raw log.
	b.appendLine(RawLog, fmt.Sprintf("%s %s\n", ts, m.String()))

	switch m.Command {
	case "PRIVMSG":
		b.handlePrivmsg(m, ts)

	case "JOIN":
		if len(m.Params) == 0 {
			return
		}
		channel := m.Params[0]
		dir := "/" + channel
		b.ensureDir(dir)
		b.appendLine(dir+"/"+receiveName,
			fmt.Sprintf("%s %s has joined\n", ts, b.sender(m)))

	case "PART":
		if len(m.Params) == 0 {
			return
		}
		channel := m.Params[0]
		dir := "/" + channel
		reason := ""
		if len(m.Params) > 1 && m.Trailing() != "" {
			reason = fmt.Sprintf(" (%s)", m.Trailing())
		}
		b.ensureDir(dir)
		b.appendLine(dir+"/"+receiveName,
			fmt.Sprintf("%s %s has left%s\n", ts, b.sender(m), reason))

	case "PING", "PONG":
		// Keepalive is the session library's business.

	case irc.RPL_WELCOME:
		// Registration complete: join the pre-declared channels.
		b.autojoin()
		b.appendLine(SessionLog, fmt.Sprintf("%s %s\n", ts, m.String()))

	default:
		b.appendLine(SessionLog, fmt.Sprintf("%s %s\n", ts, m.String()))
	}
}

// handlePrivmsg materializes the conversation directory and appends the
// formatted line. Direct messages (target is this client's nickname)
// are filed under the sender's nickname instead.
func (b *Bridge) handlePrivmsg(m *irc.Message, ts string) {
	if len(m.Params) < 2 {
		return
	}
	sender := b.sender(m)
	text := m.Trailing()

	if reply, ok := b.ctcpReply(sender, text); ok {
		if err := b.enqueueSend(reply); err != nil {
			logger.Debug("dropped ctcp reply", logger.KeyTarget, sender, logger.KeyError, err)
		}
		return
	}

	target := m.Params[0]
	dir := "/" + target
	if target == b.session.CurrentNick() {
		dir = "/" + sender
	}
	b.ensureDir(dir)
	b.appendLine(dir+"/"+receiveName,
		fmt.Sprintf("%s %s: %s\n", ts, sender, strings.TrimSpace(text)))
}

// ctcpReply answers CTCP VERSION/SOURCE/USERINFO queries from the
// configured strings. The session library does not handle CTCP.
func (b *Bridge) ctcpReply(sender, text string) (*irc.Message, bool) {
	if len(text) < 2 || text[0] != '\x01' || text[len(text)-1] != '\x01' {
		return nil, false
	}
	query := strings.Fields(strings.Trim(text, "\x01"))
	if len(query) == 0 {
		return nil, true
	}

	var answer string
	switch strings.ToUpper(query[0]) {
	case "VERSION":
		answer = b.cfg.Version
	case "SOURCE":
		answer = b.cfg.Source
	case "USERINFO":
		answer = b.cfg.UserInfo
	}
	if answer == "" {
		// Unanswerable queries are swallowed; they never reach the tree.
		return nil, true
	}
	return &irc.Message{
		Command: "NOTICE",
		Params:  []string{sender, fmt.Sprintf("\x01%s %s\x01", strings.ToUpper(query[0]), answer)},
	}, true
}

// autojoin queues directory creation and JOIN messages for every
// configured channel.
func (b *Bridge) autojoin() {
	for _, channel := range b.cfg.Channels {
		b.ensureDir("/" + channel)
		join := &irc.Message{Command: "JOIN", Params: []string{channel}}
		if key, ok := b.cfg.ChannelKeys[channel]; ok {
			join.Params = append(join.Params, key)
		}
		if err := b.enqueueSend(join); err != nil {
			logger.Warn("failed to queue join", logger.KeyTarget, channel, logger.KeyError, err)
		}
	}
}

// sender extracts the short nickname from the message prefix, falling
// back to this client's current nickname when the server omitted it.
func (b *Bridge) sender(m *irc.Message) string {
	if m.Prefix != nil && m.Prefix.Name != "" {
		return m.Prefix.Name
	}
	return b.session.CurrentNick()
}

func (b *Bridge) ensureDir(path string) {
	if err := b.enqueueCommand(CreateDir{Path: path}); err != nil {
		logger.Debug("dropped create", logger.KeyPath, path, logger.KeyError, err)
	}
}

func (b *Bridge) appendLine(path, line string) {
	if err := b.enqueueCommand(Message{Path: path, Data: []byte(line)}); err != nil {
		logger.Debug("dropped line", logger.KeyPath, path, logger.KeyError, err)
	}
}
