package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sheetsync-bridge/tabular"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the parsed table after every settled change.
type Handler func(ctx context.Context, table *tabular.Table)

// Options tunes the watcher. Zero values fall back to defaults that match
// a human saving a file from Excel.
type Options struct {
	// File is the absolute path of the CSV/XLSX file to watch.
	File string

	// Debounce ignores change bursts within this window (default 1s).
	Debounce time.Duration

	// StableChecks is how many consecutive unchanged size reads count as
	// "the save finished" (default 3).
	StableChecks int

	// StableInterval is the pause between size reads (default 300ms).
	StableInterval time.Duration

	// ReadRetries bounds both the stability polling and the copy attempts
	// while the file is locked (default 40).
	ReadRetries int

	// RetryDelay is the pause between copy attempts (default 750ms).
	RetryDelay time.Duration
}

func (o *Options) applyDefaults() {
	if o.Debounce <= 0 {
		o.Debounce = time.Second
	}
	if o.StableChecks <= 0 {
		o.StableChecks = 3
	}
	if o.StableInterval <= 0 {
		o.StableInterval = 300 * time.Millisecond
	}
	if o.ReadRetries <= 0 {
		o.ReadRetries = 40
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 750 * time.Millisecond
	}
}

// Watcher watches a single file and hands settled changes to a Handler.
type Watcher struct {
	opts    Options
	handler Handler

	mu        sync.Mutex
	lastEvent time.Time
}

func New(opts Options, handler Handler) (*Watcher, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("watcher: file is required")
	}
	abs, err := filepath.Abs(opts.File)
	if err != nil {
		return nil, err
	}
	opts.File = abs
	opts.applyDefaults()

	return &Watcher{opts: opts, handler: handler}, nil
}

// Run watches until ctx is cancelled.
//
// The whole parent directory is watched and events filtered by name:
// editors and Excel replace files by rename, which would silently detach
// a watch on the file itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.opts.File)
	target := filepath.Base(w.opts.File)

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	log.Printf("watching folder: %s", dir)
	log.Printf("target file    : %s", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.onChange(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// onChange debounces, reads and dispatches one settled change.
func (w *Watcher) onChange(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	if now.Sub(w.lastEvent) < w.opts.Debounce {
		w.mu.Unlock()
		return
	}
	w.lastEvent = now
	w.mu.Unlock()

	log.Printf("change detected: %s", w.opts.File)

	table, err := w.readTable(ctx)
	if err != nil {
		log.Printf("could not read file (locked/partial/unsupported): %v", err)
		return
	}
	w.handler(ctx, table)
}

// readTable copies the source next to itself and parses the copy.
// The copy keeps the original extension so type detection still works:
// contacts.csv -> contacts.tmpcopy.csv.
func (w *Watcher) readTable(ctx context.Context) (*tabular.Table, error) {
	if !waitUntilStable(ctx, w.opts.File, w.opts.StableChecks, w.opts.StableInterval, w.opts.ReadRetries) {
		return nil, fmt.Errorf("file %s never stabilized", w.opts.File)
	}

	tmp, err := copyToTemp(ctx, w.opts.File, w.opts.ReadRetries, w.opts.RetryDelay)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	return tabular.ReadFile(tmp)
}

// waitUntilStable polls the file size until it stays the same for checks
// consecutive reads, giving up after maxAttempts polls. A missing file
// counts as an attempt: editors briefly remove the target mid-save.
func waitUntilStable(ctx context.Context, path string, checks int, interval time.Duration, maxAttempts int) bool {
	lastSize := int64(-1)
	stable := 0

	for i := 0; i < maxAttempts; i++ {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		info, err := os.Stat(path)
		if err != nil {
			sleep(ctx, interval)
			continue
		}

		size := info.Size()
		if size == lastSize && size > 0 {
			stable++
			if stable >= checks {
				return true
			}
		} else {
			stable = 0
			lastSize = size
		}
		sleep(ctx, interval)
	}
	return false
}

// copyToTemp copies path to <stem>.tmpcopy<ext> beside it, retrying while
// the source is locked.
func copyToTemp(ctx context.Context, path string, maxAttempts int, retryDelay time.Duration) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	tmp := stem + ".tmpcopy" + ext

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if lastErr = copyFile(path, tmp); lastErr == nil {
			return tmp, nil
		}
		sleep(ctx, retryDelay)
	}
	return "", fmt.Errorf("copy %s: %w", path, lastErr)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
