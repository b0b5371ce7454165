// Copyright 2024 The Orus Authors
// This file is part of Orus.
//
// Orus is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Orus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Orus. If not, see <http://www.gnu.org/licenses/>.

package module

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Source is what a Resolver hands back for one module path: its text, the
// on-disk path mtime was read from (empty for an embedded hit), the mtime
// itself (zero for embedded sources, which carry no meaningful mtime), and
// whether it came from the embedded standard-library fallback.
type Source struct {
	Text         string
	DiskPath     string
	Mtime        time.Time
	FromEmbedded bool
}

// Resolver turns an import path into source text. General-purpose path
// resolution is out of scope here; the two-tier disk-then-embedded lookup
// is specific to module loading and lives in this package.
type Resolver interface {
	Resolve(path string) (Source, error)
}

// TieredResolver implements a disk-first, embedded-fallback lookup order:
// ORUS_PATH-style search roots are tried as real files first, then an
// embedded standard-library fs.FS (the packaged stdlib blob, supplied by
// the embedder — this package only consumes it).
type TieredResolver struct {
	// Roots are directories searched in order for "<path>.orus".
	Roots []string
	// Embedded is the packaged standard-library filesystem, or nil if the
	// embedder has none. Consulted only after every disk root misses.
	Embedded fs.FS
}

// NewTieredResolver builds a resolver searching roots in order before
// falling back to embedded (which may be nil).
func NewTieredResolver(roots []string, embedded fs.FS) *TieredResolver {
	return &TieredResolver{Roots: roots, Embedded: embedded}
}

func (r *TieredResolver) Resolve(path string) (Source, error) {
	rel := path
	if filepath.Ext(rel) == "" {
		rel += ".orus"
	}
	for _, root := range r.Roots {
		full := filepath.Join(root, rel)
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		return Source{Text: string(data), DiskPath: full, Mtime: info.ModTime()}, nil
	}
	if r.Embedded != nil {
		data, err := fs.ReadFile(r.Embedded, rel)
		if err == nil {
			return Source{Text: string(data), FromEmbedded: true}, nil
		}
	}
	return Source{}, fmt.Errorf("%w: %s", ErrModuleNotFound, path)
}

// Stat re-checks a disk-resolved module's current mtime, used by Loader in
// dev mode to decide whether a cached Module is stale: if mtime differs
// from what was recorded at load time, the module is re-parsed. Modules
// resolved from the embedded fallback (diskPath == "") are never
// considered stale.
func Stat(diskPath string) (time.Time, error) {
	if diskPath == "" {
		return time.Time{}, nil
	}
	info, err := os.Stat(diskPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrModuleNotFound, diskPath)
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
