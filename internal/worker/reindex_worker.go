package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"rag-governor/internal/usecase"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce = 500 * time.Millisecond
	refreshTimeout  = 5 * time.Minute
	initialBackoff  = 1 * time.Second
	maxBackoff      = 5 * time.Minute
)

// Observer is told about every refresh attempt.
type Observer func(result *usecase.RefreshResult, err error)

// ReindexWorker rebuilds the corpus index when files in the corpus
// directory change. Bursts of events are debounced into one refresh; failed
// refreshes are retried with exponential backoff while the previous snapshot
// keeps serving.
type ReindexWorker struct {
	refresh  usecase.RefreshIndexUsecase
	dir      string
	debounce time.Duration
	filter   func(name string) bool
	observer Observer
	logger   *slog.Logger

	triggers chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	watcher  *fsnotify.Watcher

	backoff        time.Duration
	initialBackoff time.Duration
}

func NewReindexWorker(
	refresh usecase.RefreshIndexUsecase,
	dir string,
	debounce time.Duration,
	logger *slog.Logger,
) *ReindexWorker {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReindexWorker{
		refresh:        refresh,
		dir:            dir,
		debounce:       debounce,
		filter:         func(string) bool { return true },
		logger:         logger,
		triggers:       make(chan struct{}, 1),
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
		initialBackoff: initialBackoff,
	}
}

// WithFilter restricts which file names trigger a refresh.
func (w *ReindexWorker) WithFilter(filter func(name string) bool) *ReindexWorker {
	if filter != nil {
		w.filter = filter
	}
	return w
}

// WithObserver registers a callback run after every refresh attempt.
func (w *ReindexWorker) WithObserver(observer Observer) *ReindexWorker {
	w.observer = observer
	return w
}

// Start begins watching. A missing directory is not an error: the worker
// still serves manual triggers.
func (w *ReindexWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if info, err := os.Stat(w.dir); err == nil && info.IsDir() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.cancel()
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := watcher.Add(w.dir); err != nil {
			_ = watcher.Close()
			w.cancel()
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
		w.watcher = watcher
		events, errs = watcher.Events, watcher.Errors
		w.logger.Info("reindex_worker_started",
			slog.String("dir", w.dir),
			slog.Duration("debounce", w.debounce))
	} else {
		w.logger.Warn("reindex_worker_dir_unavailable", slog.String("dir", w.dir))
	}

	go w.run(ctx, events, errs)
	return nil
}

// Trigger schedules a refresh as if a file had changed.
func (w *ReindexWorker) Trigger() {
	select {
	case w.triggers <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for an in-flight refresh to return.
func (w *ReindexWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("reindex_worker_stopping")
		close(w.stopChan)
		if w.cancel != nil {
			w.cancel()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
	if w.cancel != nil {
		<-w.done
	}
}

func (w *ReindexWorker) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	defer close(w.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	var timerC <-chan time.Time
	schedule := func(d time.Duration) {
		timer.Reset(d)
		timerC = timer.C
	}

	for {
		select {
		case <-w.stopChan:
			timer.Stop()
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if w.relevant(event) {
				schedule(w.debounce)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("reindex_watch_error", slog.String("error", err.Error()))
		case <-w.triggers:
			schedule(w.debounce)
		case <-timerC:
			timerC = nil
			if err := w.refreshOnce(ctx); err != nil {
				schedule(w.backoff)
			}
		}
	}
}

func (w *ReindexWorker) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.filter(event.Name)
}

func (w *ReindexWorker) refreshOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	result, err := w.refresh.Execute(ctx)
	if w.observer != nil {
		w.observer(result, err)
	}
	if err != nil {
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("index_refresh_failed",
			slog.String("error", err.Error()),
			slog.Duration("backoff", w.backoff))
		return err
	}

	w.backoff = 0
	w.logger.Info("index_refresh_completed",
		slog.Bool("swapped", result.Swapped),
		slog.Int("document_count", result.DocumentCount),
		slog.String("fingerprint", result.Fingerprint))
	return nil
}

func (w *ReindexWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return w.initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
