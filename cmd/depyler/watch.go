package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/paiml/depyler-sub011/internal/config"
	"github.com/paiml/depyler-sub011/internal/pyast"
)

const watchDebounce = 150 * time.Millisecond

// watchInputs reruns run whenever an input or depyler.toml under root
// changes, until ctx is cancelled.
func watchInputs(ctx context.Context, root string, log io.Writer, run func(context.Context) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = w.Close() }()

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if err := w.Add(filepath.Dir(root)); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
	} else if err := addTree(w, root); err != nil {
		return err
	}
	fmt.Fprintf(log, "watching %s (ctrl-c to stop)\n", root)

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && info.IsDir() {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() && !skipDir(filepath.Base(ev.Name)) {
					_ = addTree(w, ev.Name)
				}
			}
			if relevantChange(root, info.IsDir(), ev) {
				debounce.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(log, "watch: %v\n", err)
		case <-debounce.C:
			fmt.Fprintf(log, "change detected, retranslating %s\n", root)
			if err := run(ctx); err != nil && !errors.Is(err, errDiagnostics) {
				fmt.Fprintf(log, "depyler: %v\n", err)
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__"
}

func relevantChange(root string, rootIsDir bool, ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if filepath.Base(ev.Name) == config.FileName {
		return true
	}
	if !rootIsDir {
		return filepath.Clean(ev.Name) == filepath.Clean(root)
	}
	_, err := pyast.FormatOf(ev.Name)
	return err == nil
}
