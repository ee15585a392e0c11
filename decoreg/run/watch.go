package run

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/toejough/decoreg/internal/ctxlog"
)

// unexported constants.
const (
	defaultDebounce = 500 * time.Millisecond
)

// unexported variables.
var (
	errWatcherClosed = errors.New("watcher closed")
)

// debouncer collects paths and hands them to flush once no new path arrived for delay.
// Flushes never overlap.
type debouncer struct {
	mu      sync.Mutex
	flushMu sync.Mutex
	delay   time.Duration
	pending map[string]struct{}
	timer   *time.Timer
	flush   func(paths []string)
}

func newDebouncer(delay time.Duration, flush func(paths []string)) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]struct{}), flush: flush}
}

func newWatchCmd(a *app) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Transform files again whenever they change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			return a.watch(cmd.Context(), filepath.Clean(dir), delay)
		},
	}

	cmd.Flags().DurationVar(&delay, "debounce", defaultDebounce, "quiet period before changed files are processed")

	return cmd
}

func (d *debouncer) add(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[name] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) fire() {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))

	for name := range d.pending {
		paths = append(paths, name)
	}

	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	if len(paths) == 0 {
		return
	}

	slices.Sort(paths)
	d.flush(paths)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}

// rewrite runs the pass over files and writes the ones that changed. Failures are logged; the
// watch keeps going.
func (a *app) rewrite(ctx context.Context, files []string, cache *diskCache) {
	log := ctxlog.FromContext(ctx)

	results, err := a.process(ctx, files, cache)
	if err != nil {
		log.Debug("batch interrupted", "err", err)
		return
	}

	for _, res := range results {
		switch {
		case res.err != nil:
			log.Error("transform failed", "file", res.path, "err", res.err)
		case res.changed:
			err = a.writeResult(ctx, res)
			if err != nil {
				log.Error("write failed", "file", res.path, "err", err)
			}
		}
	}

	if err := cache.save(); err != nil {
		log.Warn("cache not saved", "err", err)
	}
}

func (a *app) watch(ctx context.Context, dir string, delay time.Duration) error {
	log := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	err = a.fileSys.WalkDir(dir, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.IsDir() {
			return nil
		}

		if name != dir && skipDir(entry.Name()) {
			return filepath.SkipDir
		}

		return watcher.Add(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add watchers: %w", err)
	}

	cache := a.openCache()

	files, err := discover(a.fileSys, []string{dir}, a.file.Include, a.file.Exclude)
	if err != nil {
		return err
	}

	a.rewrite(ctx, files, cache)

	changes := newDebouncer(delay, func(paths []string) {
		log.Debug("file changes detected", "files", len(paths))
		a.rewrite(ctx, paths, cache)
	})
	defer changes.stop()

	log.Info("watching", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errWatcherClosed
			}

			if event.Has(fsnotify.Create) {
				if info, err := a.fileSys.Stat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
					log.Debug("adding watcher for new directory", "dir", event.Name)
					_ = watcher.Add(event.Name)

					continue
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if a.watched(dir, event.Name) {
				changes.add(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errWatcherClosed
			}

			log.Error("watcher error", "err", err)
		}
	}
}

// watched reports whether a changed path is a source file the config selects.
func (a *app) watched(dir, name string) bool {
	if !isSource(name) {
		return false
	}

	rel, err := filepath.Rel(dir, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	rel = filepath.ToSlash(rel)

	for _, part := range strings.Split(path.Dir(rel), "/") {
		if skipDir(part) {
			return false
		}
	}

	return selected(rel, a.file.Include, a.file.Exclude)
}
