package jobs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// InvoiceSweepJob removes invoice PDFs older than the retention window.
// Invoice rows are kept; only the on-disk artifacts are pruned.
type InvoiceSweepJob struct {
	dir       string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewInvoiceSweepJob constructs the sweep job.
func NewInvoiceSweepJob(dir string, retention time.Duration, logger *slog.Logger) *InvoiceSweepJob {
	return &InvoiceSweepJob{dir: dir, retention: retention, logger: logger, now: time.Now}
}

// Handle processes TaskTypeInvoiceSweep tasks.
func (j *InvoiceSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	cutoff := j.now().Add(-j.retention)
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil {
			j.logger.Warn("remove old invoice", slog.String("file", entry.Name()), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		j.logger.Info("invoice sweep", slog.Int("removed", removed))
	}
	return nil
}
