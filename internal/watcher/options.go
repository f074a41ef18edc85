package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Options configures which files the watcher reports and how long a file
// must stay quiet before it is considered complete.
type Options struct {
	// IgnorePatterns are filepath.Match globs applied to the base name.
	// Nil selects defaultIgnorePatterns and turns IgnoreHidden on.
	IgnorePatterns []string
	SettleDelay    time.Duration
	IgnoreHidden   bool

	// Suffixes limits events to files whose name ends with one of them.
	// Empty means every file.
	Suffixes []string
}

const defaultSettleDelay = 2 * time.Second

// Leftovers of browsers and download tools while a dump is still arriving.
var defaultIgnorePatterns = []string{
	".DS_Store",
	"*.tmp",
	"*.part",
	"*.crdownload",
	"*.download",
}

func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = defaultSettleDelay
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = slices.Clone(defaultIgnorePatterns)
		o.IgnoreHidden = true
	}
}

func (o *Options) shouldIgnore(path string) bool {
	if o.IgnoreHidden && hasHiddenElement(path) {
		return true
	}
	base := filepath.Base(path)
	return slices.ContainsFunc(o.IgnorePatterns, func(pattern string) bool {
		ok, err := filepath.Match(pattern, base)
		return err == nil && ok
	})
}

func hasHiddenElement(path string) bool {
	for elem := range strings.SplitSeq(filepath.ToSlash(filepath.Clean(path)), "/") {
		if len(elem) > 1 && elem[0] == '.' && elem != ".." {
			return true
		}
	}
	return false
}

// wants reports whether events for path should be emitted.
func (o *Options) wants(path string) bool {
	if len(o.Suffixes) == 0 {
		return true
	}
	base := filepath.Base(path)
	return slices.ContainsFunc(o.Suffixes, func(suffix string) bool {
		return strings.HasSuffix(base, suffix)
	})
}
