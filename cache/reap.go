// Package cache implements the Cache Reaper (C9): after a successful
// render, it deletes rasterized overlay PNGs whose content key was not
// touched during the run.
package cache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// TouchedKeys accumulates every content key the Overlay Rasterizer
// considered during a run, hit or miss, per spec.md §4.5's caching
// discipline. The zero value is ready to use.
type TouchedKeys struct {
	keys map[string]bool
}

// Touch records key as seen during this run.
func (t *TouchedKeys) Touch(key string) {
	if t.keys == nil {
		t.keys = map[string]bool{}
	}
	t.keys[key] = true
}

// Has reports whether key was touched, used by callers that need to decide
// whether a rasterization can be skipped ahead of calling the rasterizer.
func (t *TouchedKeys) Has(key string) bool {
	return t.keys[key]
}

// Reap enumerates every PNG in dirs and unlinks any whose basename (minus
// the .png extension) was not touched this run. Reaping is advisory: every
// error is logged, never returned, matching spec.md §4.9 and §7's
// "Cache Reaper is not run after a fatal error" propagation policy, which
// this function's caller enforces by only calling it on the success path.
func Reap(dirs []string, touched *TouchedKeys, log *logrus.Entry) {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.WithError(err).WithField("dir", dir).Warn("cache reaper: could not list directory")
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
				continue
			}
			key := strings.TrimSuffix(e.Name(), ".png")
			if touched.keys[key] {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				log.WithError(err).WithField("path", path).Warn("cache reaper: could not remove stale entry")
			}
		}
	}
}
