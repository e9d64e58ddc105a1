package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/docdeck/internal/docstore"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/toc"
)

// Worker builds one document job at a time.
type Worker struct {
	parsers  parser.Config
	store    *docstore.Store
	stats    *RenderStats
	notify   Listener
	maxBytes int64
	read     func(path string, maxBytes int64) ([]byte, error)
	log      *slog.Logger
}

func NewWorker(parsers parser.Config, store *docstore.Store, stats *RenderStats, notify Listener, maxBytes int64, log *slog.Logger) *Worker {
	return &Worker{
		parsers:  parsers,
		store:    store,
		stats:    stats,
		notify:   notify,
		maxBytes: maxBytes,
		read:     readLimited,
		log:      log,
	}
}

// Process reads, renders and stores the document of a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "file", job.Filename)

	// Phase 1: Read
	job.SetStatus(StatusReading, "reading")
	data, err := w.readSource(ctx, job.path, log)
	if err != nil {
		w.fail(job, log, "reading", fmt.Errorf("read: %w", err))
		return
	}

	hash := ContentHashHex(data)
	if !job.Force && w.store.Hash(job.DocID) == hash {
		log.Debug("content unchanged, skipping")
		job.SetResult(hash, 0)
		job.SetStatus(StatusUnchanged, "done")
		return
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.parsers)
	if err != nil {
		w.fail(job, log, "parsing", err)
		return
	}

	start := time.Now()
	doc, err := p.Parse(bytes.NewReader(data), job.Filename, job.DocID)
	if err != nil {
		w.fail(job, log, "parsing", fmt.Errorf("parse: %w", err))
		return
	}
	elapsed := time.Since(start)

	doc.ID = job.DocID
	doc.File = job.Filename
	if job.Title != "" {
		doc.Title = job.Title
	}
	doc.Subtitle = job.Subtitle
	doc.Outline = toc.GroupHeadings(doc.Headings)
	doc.ContentHash = hash
	doc.BuiltAt = time.Now()

	// Phase 3: Store
	w.store.Put(doc)
	if w.stats != nil {
		w.stats.Record(doc.Kind, elapsed)
	}
	job.SetResult(hash, len(doc.Headings))
	job.SetStatus(StatusCompleted, "done")
	log.Info("document built", "kind", doc.Kind, "headings", len(doc.Headings), "groups", len(doc.Outline), "render_ms", elapsed.Milliseconds())

	w.emit(Event{Type: EventUpdated, DocID: job.DocID, JobID: job.ID})
}

func (w *Worker) fail(job *Job, log *slog.Logger, phase string, err error) {
	log.Error("build failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
	w.emit(Event{Type: EventFailed, DocID: job.DocID, JobID: job.ID, Error: err.Error()})
}

func (w *Worker) emit(ev Event) {
	if w.notify != nil {
		w.notify(ev)
	}
}

// readSource reads path, retrying transient failures with backoff.
func (w *Worker) readSource(ctx context.Context, path string, log *slog.Logger) ([]byte, error) {
	var lastErr error
	for attempt := range MaxRetries {
		data, err := w.read(path, w.maxBytes)
		if err == nil || !IsRetryable(err) {
			return data, err
		}
		lastErr = err
		log.Warn("retryable read error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

var errSourceChanging = errors.New("source changed while reading")

// readLimited reads at most maxBytes from path. A file that is still being
// written (size or mtime moved during the read) yields a RetryableError.
func readLimited(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	before, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r := io.Reader(f)
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", maxBytes)
	}

	after, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := checkSettled(before, after, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// checkSettled compares file info taken around a read of n bytes.
func checkSettled(before, after fs.FileInfo, n int) error {
	if before.Size() != after.Size() || !before.ModTime().Equal(after.ModTime()) || after.Size() != int64(n) {
		return &RetryableError{Err: errSourceChanging}
	}
	return nil
}
