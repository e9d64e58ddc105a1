package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/docstore"
	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/parser"
)

// ErrUnknownDocument is returned for ids that name no document section.
var ErrUnknownDocument = errors.New("unknown document")

// Orchestrator manages the document build pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	site     *manifest.Manifest
	docsDir  string
	store    *docstore.Store
	stats    *RenderStats
	parsers  parser.Config
	listener Listener
	log      *slog.Logger
	cfg      config.Config

	mu      sync.RWMutex
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch the workers.
func NewOrchestrator(cfg config.Config, site *manifest.Manifest, parsers parser.Config, store *docstore.Store, stats *RenderStats, log *slog.Logger) *Orchestrator {
	docsDir := cfg.DocsDir
	if docsDir == "" {
		docsDir = site.Dir()
	}
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		site:    site,
		docsDir: docsDir,
		store:   store,
		stats:   stats,
		parsers: parsers,
		log:     log,
		cfg:     cfg,
	}
}

// SetListener installs the document event listener. Call before Start.
func (o *Orchestrator) SetListener(l Listener) {
	o.listener = l
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.parsers, o.store, o.stats, o.listener, o.cfg.MaxSourceBytes, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		job.SetStatus(StatusFailed, "stopped")
		return errors.New("pipeline is stopped")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Rebuild queues a build of the document section docID.
func (o *Orchestrator) Rebuild(docID string, force bool) (*Job, error) {
	sec, ok := o.site.Section(docID)
	if !ok || sec.Kind != manifest.KindDocument {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	job := NewJob(sec.ID, filepath.Base(sec.File), filepath.Join(o.docsDir, filepath.FromSlash(sec.File)))
	job.Title = sec.Title
	job.Subtitle = sec.Subtitle
	job.Force = force
	if err := o.Submit(job); err != nil {
		return job, err
	}
	return job, nil
}

// RebuildAll queues a build of every document section.
func (o *Orchestrator) RebuildAll(force bool) error {
	var errs []error
	for _, sec := range o.site.Documents() {
		if _, err := o.Rebuild(sec.ID, force); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sec.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Remove drops a document whose source went away.
func (o *Orchestrator) Remove(docID string) bool {
	if !o.store.Delete(docID) {
		return false
	}
	o.log.Info("document removed", "doc_id", docID)
	if o.listener != nil {
		o.listener(Event{Type: EventRemoved, DocID: docID})
	}
	return true
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// DocsDir returns the directory section files are resolved against.
func (o *Orchestrator) DocsDir() string {
	return o.docsDir
}

// Site returns the manifest the pipeline builds from.
func (o *Orchestrator) Site() *manifest.Manifest {
	return o.site
}
