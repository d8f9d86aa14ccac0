package bridge

import (
	"path"
	"strings"

	"gopkg.in/irc.v4"

	"github.com/marmos91/ircfs/internal/logger"
)

// HandleWrite interprets bytes written to a writable file. Writes to
// the session-level control file are parsed as slash-prefixed
// directives; writes to a conversation's send file are chat message
// bodies for that conversation. Empty content is a no-op.
//
// Returns ErrClosed when the bridge has shut down; the adapter maps
// that to a not-supported error at the filesystem boundary.
func (b *Bridge) HandleWrite(p string, data []byte) error {
	if p == ControlPath {
		return b.handleDirective(string(data))
	}
	if path.Base(p) != sendName {
		return nil
	}

	target := path.Base(path.Dir(p))
	body := strings.TrimSpace(string(data))
	if body == "" {
		return nil
	}
	return b.enqueueSend(&irc.Message{Command: "PRIVMSG", Params: []string{target, body}})
}

// handleDirective parses one control-file write. The first non-empty
// space-separated token is the directive; the rest are arguments.
// Unknown directives are silently ignored.
func (b *Bridge) handleDirective(content string) error {
	tokens := splitTokens(content)
	if len(tokens) == 0 {
		return nil
	}
	directive, args := tokens[0], tokens[1:]

	switch strings.TrimPrefix(directive, "/") {
	case "j", "join":
		return b.directiveJoin(args)
	case "part":
		return b.directivePart(args)
	case "msg":
		return b.directiveMsg(args)
	default:
		logger.Debug("ignoring unknown directive", logger.KeyCommand, directive)
		return nil
	}
}

// directiveJoin handles `/join CHANNELS [KEYS]`: comma-separated
// channel list, optionally zipped with a comma-separated key list.
func (b *Bridge) directiveJoin(args []string) error {
	if len(args) == 0 {
		return nil
	}
	channels := strings.Split(args[0], ",")
	var keys []string
	if len(args) > 1 {
		keys = strings.Split(args[1], ",")
	}

	for i, channel := range channels {
		if channel == "" {
			continue
		}
		if err := b.enqueueCommand(CreateDir{Path: "/" + channel}); err != nil {
			return err
		}
		join := &irc.Message{Command: "JOIN", Params: []string{channel}}
		if i < len(keys) && keys[i] != "" {
			join.Params = append(join.Params, keys[i])
		}
		if err := b.enqueueSend(join); err != nil {
			return err
		}
	}
	return nil
}

// directivePart handles `/part CHANNELS [REASONS]` analogously to join.
func (b *Bridge) directivePart(args []string) error {
	if len(args) == 0 {
		return nil
	}
	channels := strings.Split(args[0], ",")
	var reasons []string
	if len(args) > 1 {
		reasons = strings.Split(args[1], ",")
	}

	for i, channel := range channels {
		if channel == "" {
			continue
		}
		if err := b.enqueueCommand(CreateDir{Path: "/" + channel}); err != nil {
			return err
		}
		part := &irc.Message{Command: "PART", Params: []string{channel}}
		if i < len(reasons) && reasons[i] != "" {
			part.Params = append(part.Params, reasons[i])
		}
		if err := b.enqueueSend(part); err != nil {
			return err
		}
	}
	return nil
}

// directiveMsg handles `/msg TARGET REST`: the target's directory is
// materialized, the message is sent, and the outbound worker mirrors it
// locally.
func (b *Bridge) directiveMsg(args []string) error {
	if len(args) == 0 {
		return nil
	}
	target := args[0]
	if err := b.enqueueCommand(CreateDir{Path: "/" + target}); err != nil {
		return err
	}
	if len(args) < 2 {
		return nil
	}
	body := strings.Join(args[1:], " ")
	return b.enqueueSend(&irc.Message{Command: "PRIVMSG", Params: []string{target, body}})
}

// splitTokens strips trailing whitespace and splits on ASCII space,
// discarding empty tokens from repeated separators.
func splitTokens(content string) []string {
	var tokens []string
	for _, tok := range strings.Split(strings.TrimSpace(content), " ") {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
