package ircfuse

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/marmos91/ircfs/pkg/metrics"
	"github.com/marmos91/ircfs/pkg/tree"
)

// Status values without named constants in the fuse package.
var (
	statusIsDirectory  = fuse.Status(syscall.EISDIR)
	statusNotSupported = fuse.Status(syscall.ENOTSUP)
	statusExists       = fuse.Status(syscall.EEXIST)
)

// errStatus maps tree-store errors to errno-style FUSE status codes.
func errStatus(err error) fuse.Status {
	switch tree.CodeOf(err) {
	case tree.ErrNotFound:
		return fuse.ENOENT
	case tree.ErrAlreadyExists:
		return statusExists
	case tree.ErrIsDirectory:
		return statusIsDirectory
	case tree.ErrNotDirectory:
		return fuse.ENOTDIR
	case tree.ErrNotSupported:
		return statusNotSupported
	case tree.ErrPermissionDenied:
		return fuse.EACCES
	case tree.ErrNotImplemented:
		return fuse.ENOSYS
	default:
		return fuse.EINVAL
	}
}

// observe records the operation outcome and passes the status through.
func observe(op string, code fuse.Status) fuse.Status {
	status := "ok"
	if !code.Ok() {
		status = "error"
	}
	metrics.FSOperations.WithLabelValues(op, status).Inc()
	return code
}
