// Copyright (c) 2025, The Kiln Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/voicetuber/kiln/pkg/build"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/header"
	"github.com/voicetuber/kiln/pkg/recipe"
)

const stagingDirName = ".staging"

// Store is a directory of published packages. It is safe for concurrent use.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens or creates a store rooted at root.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid store path %q", root), err)
	}
	if err := os.MkdirAll(filepath.Join(abs, stagingDirName), 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeArtifactStaging,
			fmt.Sprintf("failed to create store %s", abs), err)
	}
	return &Store{
		root:  abs,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string {
	return s.root
}

// PackageDir returns where the package for ref and id is published.
func (s *Store) PackageDir(ref recipe.Reference, id string) string {
	return filepath.Join(s.root, ref.Name, ref.Version, id)
}

func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// Lookup returns the published package for ref and id. It reports false when
// nothing valid is published there.
func (s *Store) Lookup(ref recipe.Reference, id string) (*Package, bool) {
	dir := s.PackageDir(ref, id)
	m, err := readManifest(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("ignoring invalid package", "dir", dir, "error", err)
		}
		return nil, false
	}
	if m.PackageID != id || m.Ref != ref.String() {
		slog.Warn("ignoring mismatched package manifest", "dir", dir, "ref", m.Ref, "package_id", m.PackageID)
		return nil, false
	}
	if _, err := os.Stat(GetChecksumFilePath(dir)); err != nil {
		return nil, false
	}
	return &Package{Ref: ref, ID: id, Dir: dir, Manifest: m}, true
}

// List returns every published package sorted by path.
func (s *Store) List() ([]*Package, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "*", "*", "*", ManifestFileName))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]*Package, 0, len(matches))
	for _, m := range matches {
		dir := filepath.Dir(m)
		id := filepath.Base(dir)
		ref := recipe.Reference{
			Name:    filepath.Base(filepath.Dir(filepath.Dir(dir))),
			Version: filepath.Base(filepath.Dir(dir)),
		}
		if p, ok := s.Lookup(ref, id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Remove deletes a published package.
func (s *Store) Remove(ref recipe.Reference, id string) error {
	dir := s.PackageDir(ref, id)
	l := s.pathLock(dir)
	l.Lock()
	defer l.Unlock()
	if err := os.RemoveAll(dir); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeArtifactStaging,
			fmt.Sprintf("failed to remove %s", dir), err)
	}
	return nil
}

// Stage creates a staging directory for ref and id. The package path stays
// locked until Publish or Abort.
func (s *Store) Stage(ref recipe.Reference, id string) (*Staging, error) {
	final := s.PackageDir(ref, id)
	l := s.pathLock(final)
	l.Lock()

	dir := filepath.Join(s.root, stagingDirName, ref.Name+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Unlock()
		return nil, stagingError(ref, "failed to create staging directory", err)
	}
	return &Staging{
		store:  s,
		ref:    ref,
		id:     id,
		dir:    dir,
		final:  final,
		unlock: l.Unlock,
	}, nil
}

// Staging is an unpublished package tree.
type Staging struct {
	store  *Store
	ref    recipe.Reference
	id     string
	dir    string
	final  string
	unlock func()
	done   bool
}

// Dir returns the staging directory packages install into.
func (st *Staging) Dir() string {
	return st.dir
}

// CopyLicenses copies files selected by patterns from srcDir into licenses/.
func (st *Staging) CopyLicenses(ctx context.Context, srcDir string, patterns []string) ([]string, error) {
	copied, err := build.ExportSources(ctx, srcDir, filepath.Join(st.dir, "licenses"), patterns)
	if err != nil {
		return nil, stagingError(st.ref, "failed to copy licenses", err)
	}
	return copied, nil
}

// Strip removes the given directories, relative to the staging root, and
// returns the ones that existed.
func (st *Staging) Strip(dirs []string) ([]string, error) {
	var removed []string
	for _, d := range dirs {
		p := filepath.Join(st.dir, filepath.FromSlash(d))
		if _, err := os.Lstat(p); err != nil {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return removed, stagingError(st.ref, fmt.Sprintf("failed to strip %s", d), err)
		}
		removed = append(removed, d)
	}
	return removed, nil
}

// Publish writes the manifest and checksums and moves the tree into the
// store. An existing package at the same path is replaced.
func (st *Staging) Publish(ctx context.Context, m Manifest) (*Package, error) {
	if st.done {
		return nil, stagingError(st.ref, "staging already finished", nil)
	}
	defer st.finish()

	m.Header = *header.New(
		header.WithKind(header.KindPackage),
		header.WithAPIVersion(header.APIVersion),
	)
	m.Ref = st.ref.String()
	m.PackageID = st.id

	if err := writeManifest(st.dir, m); err != nil {
		return nil, stagingError(st.ref, "failed to write manifest", err)
	}
	if err := GenerateChecksums(ctx, st.dir); err != nil {
		return nil, stagingError(st.ref, "failed to write checksums", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, stagingError(st.ref, "publish canceled", err)
	}

	if err := os.MkdirAll(filepath.Dir(st.final), 0o755); err != nil {
		return nil, stagingError(st.ref, "failed to create package directory", err)
	}
	var old string
	if _, err := os.Stat(st.final); err == nil {
		old = filepath.Join(st.store.root, stagingDirName, "old-"+uuid.NewString())
		if err := os.Rename(st.final, old); err != nil {
			return nil, stagingError(st.ref, "failed to replace existing package", err)
		}
	}
	if err := os.Rename(st.dir, st.final); err != nil {
		if old != "" {
			_ = os.Rename(old, st.final)
		}
		return nil, stagingError(st.ref, "failed to publish package", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}

	slog.Debug("package published", "node", st.ref.String(), "package_id", st.id, "dir", st.final)
	return &Package{Ref: st.ref, ID: st.id, Dir: st.final, Manifest: m}, nil
}

// Abort discards the staging directory. It is a no-op after Publish.
func (st *Staging) Abort() error {
	if st.done {
		return nil
	}
	defer st.finish()
	if err := os.RemoveAll(st.dir); err != nil {
		return stagingError(st.ref, "failed to remove staging directory", err)
	}
	return nil
}

func (st *Staging) finish() {
	if st.done {
		return
	}
	st.done = true
	_ = os.RemoveAll(st.dir)
	st.unlock()
}

func stagingError(ref recipe.Reference, msg string, err error) error {
	return apperrors.WrapWithContext(apperrors.ErrCodeArtifactStaging,
		fmt.Sprintf("%s: %s", ref, msg), err,
		map[string]any{apperrors.ContextNode: ref.String()})
}
