package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smazurov/buttonhat/internal/logging"
)

// TextfileExporter periodically writes all registered metrics to a file in
// the node_exporter textfile collector format.
type TextfileExporter struct {
	path     string
	interval time.Duration
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTextfileExporter creates an exporter writing the default registry to path.
func NewTextfileExporter(path string, interval time.Duration) *TextfileExporter {
	return &TextfileExporter{
		path:     path,
		interval: interval,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.GetLogger("metrics"),
	}
}

// Start begins writing metrics.
func (e *TextfileExporter) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.run(ctx)
	return nil
}

// Stop stops the exporter after a final write.
func (e *TextfileExporter) Stop() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	<-e.done
	return nil
}

// Write writes the current metrics once.
func (e *TextfileExporter) Write() error {
	return prometheus.WriteToTextfile(e.path, e.gatherer)
}

func (e *TextfileExporter) run(ctx context.Context) {
	defer close(e.done)
	e.logger.Info("Starting metrics textfile export", "path", e.path, "interval", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.write()
			return
		case <-ticker.C:
			e.write()
		}
	}
}

func (e *TextfileExporter) write() {
	if err := e.Write(); err != nil {
		e.logger.Warn("Failed to write metrics textfile", "path", e.path, "error", err)
	}
}
