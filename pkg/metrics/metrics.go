// Package metrics exposes Prometheus instrumentation for the mount.
//
// Collectors register on the default registry at package init; the
// listener only starts when metrics are enabled in configuration, so a
// disabled mount pays nothing beyond counter increments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InboundEvents counts protocol events consumed from the session,
	// labelled by IRC command.
	InboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ircfs_inbound_events_total",
		Help: "Inbound IRC events consumed from the session, by command.",
	}, []string{"command"})

	// OutboundMessages counts protocol messages sent to the session,
	// labelled by IRC command.
	OutboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ircfs_outbound_messages_total",
		Help: "Outbound IRC messages forwarded to the session, by command.",
	}, []string{"command"})

	// TreeNodes tracks the number of live nodes in the tree, by kind.
	TreeNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ircfs_tree_nodes",
		Help: "Live nodes in the in-memory tree, by kind.",
	}, []string{"kind"})

	// BytesAppended counts bytes appended to tree file buffers.
	BytesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ircfs_bytes_appended_total",
		Help: "Bytes appended to tree file buffers.",
	})

	// FSOperations counts filesystem upcalls, by operation and result.
	FSOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ircfs_fs_operations_total",
		Help: "Filesystem upcalls handled by the adapter, by op and status.",
	}, []string{"op", "status"})
)

// Serve blocks serving the /metrics endpoint on addr.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
