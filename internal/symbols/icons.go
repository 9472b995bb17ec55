package symbols

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// iconPattern matches the icon files picked up from an icon directory.
const iconPattern = "**/*.{png,svg,PNG,SVG}"

const reloadDelay = 250 * time.Millisecond

// LoadIcons points every symbol that has a matching file anywhere under
// dir (by IconName, e.g. "WU.svg" for {W/U}) at that file; the others go
// back to their default reference. PNG wins over SVG when both exist. It
// returns how many icons were bound.
func (r *Registry) LoadIcons(dir string) (int, error) {
	n, _, err := r.loadIcons(dir)
	return n, err
}

func (r *Registry) loadIcons(dir string) (int, []string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), iconPattern)
	if err != nil {
		return 0, nil, fmt.Errorf("scan icon dir %s: %w", dir, err)
	}
	icons := map[string]string{}
	for _, m := range matches {
		base := filepath.Base(m)
		ext := filepath.Ext(base)
		name := strings.TrimSuffix(base, ext)
		if prev, ok := icons[name]; ok && strings.EqualFold(filepath.Ext(prev), ".png") {
			continue
		}
		icons[name] = filepath.Join(dir, filepath.FromSlash(m))
	}
	n, touched := r.setIcons(icons)
	return n, touched, nil
}

// Watch reloads icons from dir and its subdirectories whenever a file in
// them changes, until ctx is done. Bursts of events are coalesced. After
// each reload OnReload receives the affected references.
func (r *Registry) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create icon watcher: %w", err)
	}
	if err := watchTree(fsw, dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watch icon dir %s: %w", dir, err)
	}

	go func() {
		defer fsw.Close()
		var reload <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						if err := watchTree(fsw, ev.Name); err != nil {
							logger.Warn("watch icon subdir", "dir", ev.Name, "error", err)
						}
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					reload = time.After(reloadDelay)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("icon watcher error", "error", err)
			case <-reload:
				reload = nil
				n, touched, err := r.loadIcons(dir)
				if err != nil {
					logger.Warn("icon reload failed", "dir", dir, "error", err)
					continue
				}
				if r.OnReload != nil {
					r.OnReload(touched)
				}
				logger.Info("symbol icons reloaded", "dir", dir, "bound", n)
			}
		}
	}()
	return nil
}

// watchTree adds dir and every directory below it.
func watchTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
