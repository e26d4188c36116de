// Package watch submits video files dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/forPelevin/tamilshorts/internal/jobs"
)

var videoExts = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
}

// IsVideoFile reports whether name looks like a finished video file.
// Dotfiles and in-progress downloads are rejected.
func IsVideoFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	if strings.HasSuffix(lower, ".tmp") || strings.HasSuffix(lower, ".part") {
		return false
	}
	_, ok := videoExts[filepath.Ext(lower)]
	return ok
}

type Submitter interface {
	Submit(source string) (jobs.Job, error)
}

type Options struct {
	// Poll is how often a new file's size is sampled.
	Poll time.Duration
	// StableFor is how long the size must stay unchanged before submit.
	StableFor time.Duration
	Logger    *slog.Logger
}

type Watcher struct {
	dir     string
	sub     Submitter
	opts    Options
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

// New starts watching dir. Call Run to process events.
func New(dir string, sub Submitter, opts Options) (*Watcher, error) {
	if opts.Poll <= 0 {
		opts.Poll = time.Second
	}
	if opts.StableFor <= 0 {
		opts.StableFor = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:     dir,
		sub:     sub,
		opts:    opts,
		fsw:     fsw,
		logger:  opts.Logger,
		pending: make(map[string]struct{}),
	}, nil
}

// Run handles events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.fsw.Close()
		w.wg.Wait()
	}()
	w.logger.Info("watching inbox", "path", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !IsVideoFile(event.Name) {
				continue
			}
			w.track(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) track(ctx context.Context, path string) {
	w.mu.Lock()
	if _, ok := w.pending[path]; ok {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
		}()
		if err := w.waitStable(ctx, path); err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("inbox file dropped", "path", path, "error", err)
			}
			return
		}
		j, err := w.sub.Submit(path)
		if err != nil {
			w.logger.Error("submit inbox file", "path", path, "error", err)
			return
		}
		w.logger.Info("inbox file submitted", "path", path, "job", j.ID)
	}()
}

// waitStable blocks until path has had the same non-zero size for StableFor.
func (w *Watcher) waitStable(ctx context.Context, path string) error {
	ticker := time.NewTicker(w.opts.Poll)
	defer ticker.Stop()

	var (
		lastSize int64 = -1
		since    time.Time
	)
	for {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		if st.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		now := time.Now()
		if st.Size() != lastSize || st.Size() == 0 {
			lastSize = st.Size()
			since = now
		} else if now.Sub(since) >= w.opts.StableFor {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
