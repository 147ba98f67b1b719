// Package ingest watches an inbox directory and feeds new documents into
// the pipeline.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"rosterflow/internal/bootstrap/logging"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/errs"
	"rosterflow/internal/usecase/pipeline"
)

// ContentTypeForPath classifies an inbox file by extension. PDFs come in as
// native; extraction downgrades them to assist when no text layer exists.
func ContentTypeForPath(path string) (roster.ContentType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return roster.ContentTabularMarkup, true
	case ".xlsx", ".xls", ".csv":
		return roster.ContentSpreadsheet, true
	case ".pdf":
		return roster.ContentPDFNative, true
	case ".txt", ".text":
		return roster.ContentPlainText, true
	default:
		return "", false
	}
}

// Watcher turns inbox file events into ingested and queued jobs.
type Watcher struct {
	svc    *pipeline.Service
	runner *pipeline.Runner
	dir    string
	// settle is how long a file must sit unchanged before ingest, so half
	// written uploads are not picked up.
	settle time.Duration
}

func NewWatcher(svc *pipeline.Service, runner *pipeline.Runner, dir string, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &Watcher{svc: svc, runner: runner, dir: dir, settle: settle}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.dir == "" {
		return errors.New("inbox directory is required")
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create watcher")
	}
	defer notifier.Close()

	if err := notifier.Add(w.dir); err != nil {
		return errs.Wrapf(err, "watch %s", w.dir)
	}
	// Sender subdirectories that already exist are watched too.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return errs.Wrap(err, "read inbox")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := notifier.Add(filepath.Join(w.dir, entry.Name())); err != nil {
				return errs.Wrapf(err, "watch %s", entry.Name())
			}
		}
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "ingest.watcher"), slog.String("dir", w.dir))
	logging.Info(logCtx, "inbox watcher started")

	pending := map[string]*time.Timer{}
	settled := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				if event.Has(fsnotify.Create) {
					if addErr := notifier.Add(path); addErr != nil {
						logging.Warn(logCtx, "cannot watch new sender directory",
							slog.String("path", path),
							slog.Any("error", errs.Loggable(addErr)),
						)
					}
				}
				continue
			}
			if _, ok := ContentTypeForPath(path); !ok {
				continue
			}
			// Debounce: restart the settle timer on every write.
			if timer, exists := pending[path]; exists {
				timer.Stop()
			}
			pending[path] = time.AfterFunc(w.settle, func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})

		case path := <-settled:
			delete(pending, path)
			w.ingestFile(logCtx, path)

		case watchErr, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "watcher error", slog.Any("error", errs.Loggable(watchErr)))
		}
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	contentType, ok := ContentTypeForPath(path)
	if !ok {
		return
	}

	job, err := w.svc.Ingest(ctx, pipeline.IngestInput{
		DocumentRef: path,
		Sender:      w.senderFor(path),
		ContentType: contentType,
	})
	if err != nil {
		logging.Error(ctx, "inbox ingest failed",
			slog.String("path", path),
			slog.Any("error", errs.Loggable(err)),
		)
		return
	}
	w.runner.Enqueue(ctx, job.ID)
}

// senderFor reads the sender from the subdirectory the file arrived in,
// e.g. inbox/acme-health/roster.csv. Files dropped at the inbox root have
// no sender and get default policies.
func (w *Watcher) senderFor(path string) string {
	dir := filepath.Dir(path)
	if filepath.Clean(dir) == filepath.Clean(w.dir) {
		return ""
	}
	return filepath.Base(dir)
}
