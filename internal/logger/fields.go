package logger

// Standard field keys used across the codebase. Using shared constants
// keeps log output greppable.
const (
	// KeySession is the per-mount session identifier
	KeySession = "session"

	// KeyServer is the IRC server address
	KeyServer = "server"

	// KeyNick is the client's current nickname
	KeyNick = "nick"

	// KeyTarget is a message target (channel or nick)
	KeyTarget = "target"

	// KeyPath is a tree path
	KeyPath = "path"

	// KeyOp is a filesystem operation name
	KeyOp = "op"

	// KeyCommand is an IRC command name
	KeyCommand = "command"

	// KeyError is an error value
	KeyError = "error"

	// KeyDurationMs is an operation latency in milliseconds
	KeyDurationMs = "duration_ms"
)
