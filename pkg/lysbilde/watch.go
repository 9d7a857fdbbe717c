package lysbilde

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// WatchOptions configures the rebuild-on-change loop.
type WatchOptions struct {
	SiteDir       string
	ConfigPath    string
	ThemeOverride string
	Debounce      time.Duration
	SourceMaps    bool
}

// DoBuild loads config fresh and runs one full build. The watch loop calls
// it per rebuild so config edits take effect without restarting.
func DoBuild(siteDir, configPath, themeOverride string, sourceMaps bool) error {
	if configPath == "" {
		configPath = filepath.Join(siteDir, "site.toml")
	}

	site, err := LoadSite(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if themeOverride != "" {
		site.Theme = themeOverride
	}
	if sourceMaps {
		// Minified output would point source maps at lines that no longer
		// exist, so maps force minification off.
		site.Minify = false
	}

	p, err := LoadPipeline(siteDir, site)
	if err != nil {
		return err
	}
	p.SourceMaps = sourceMaps
	return p.Build()
}

// Watch builds once, then rebuilds whenever the photo tree, config file, or
// a local theme directory changes. Events are debounced so a burst of
// writes triggers a single rebuild. Returns when ctx is canceled.
func Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = filepath.Join(opts.SiteDir, "site.toml")
	}

	if err := DoBuild(opts.SiteDir, opts.ConfigPath, opts.ThemeOverride, opts.SourceMaps); err != nil {
		return err
	}

	site, err := LoadSite(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.ThemeOverride != "" {
		site.Theme = opts.ThemeOverride
	}
	outputDir := filepath.Join(opts.SiteDir, site.Build)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, filepath.Join(opts.SiteDir, site.Photos)); err != nil {
		return fmt.Errorf("watch photos: %w", err)
	}
	if err := watcher.Add(filepath.Dir(opts.ConfigPath)); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	themeDir := filepath.Join(opts.SiteDir, site.Theme)
	if info, err := os.Stat(themeDir); err == nil && info.IsDir() {
		if err := addRecursive(watcher, themeDir); err != nil {
			return fmt.Errorf("watch theme: %w", err)
		}
	}

	klog.Infof("watching %s for changes (debounce %s)", opts.SiteDir, opts.Debounce)

	// The timer starts stopped; each relevant event rearms it.
	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnore(event, outputDir) {
				continue
			}
			klog.V(1).Infof("change detected: %s %s", event.Op, event.Name)
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						klog.Warningf("watch %s: %v", event.Name, err)
					}
				}
			}
			timer.Reset(opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			klog.Warningf("watch error: %v", err)
		case <-timer.C:
			klog.Infof("rebuilding")
			if err := DoBuild(opts.SiteDir, opts.ConfigPath, opts.ThemeOverride, opts.SourceMaps); err != nil {
				klog.Errorf("rebuild failed: %v", err)
			}
		}
	}
}

// shouldIgnore filters watch events down to the ones worth a rebuild:
// content changes outside the output tree that are not hidden files.
func shouldIgnore(event fsnotify.Event, outputDir string) bool {
	relevant := event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Rename) || event.Op.Has(fsnotify.Remove)
	if !relevant {
		return true
	}

	name := filepath.Clean(event.Name)
	out := filepath.Clean(outputDir)
	if name == out || strings.HasPrefix(name, out+string(filepath.Separator)) {
		return true
	}

	return strings.HasPrefix(filepath.Base(name), ".")
}

// addRecursive registers dir and every subdirectory with the watcher,
// skipping hidden directories.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if path != dir && strings.HasPrefix(de.Name(), ".") {
				return godirwalk.SkipThis
			}
			return watcher.Add(path)
		},
	})
}
