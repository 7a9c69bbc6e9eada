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

package recipefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/serializer"
)

// Recipe file names, in lookup order.
const (
	FileYAML = "recipe.yaml"
	FileHCL  = "recipe.hcl"
)

// FileNames lists the recognized recipe file names.
var FileNames = []string{FileYAML, "recipe.yml", FileHCL}

// Decode parses a recipe file. The format follows the file extension.
func Decode(filename string, src []byte) (*Document, error) {
	switch filepath.Ext(filename) {
	case ".hcl":
		return decodeHCL(filename, src)
	case ".yaml", ".yml":
		r, err := serializer.NewReader(serializer.FormatYAML, bytes.NewReader(src), serializer.WithStrict())
		if err != nil {
			return nil, err
		}
		var doc Document
		if err := r.Deserialize(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		return &doc, nil
	default:
		return nil, fmt.Errorf("unsupported recipe file %s", filename)
	}
}

// Load reads and compiles the recipe file at path. Its directory is the
// recipe's source root.
func Load(ctx context.Context, path string) (*recipe.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNotFound, fmt.Sprintf("failed to read recipe %s", path), err)
	}
	doc, err := Decode(path, src)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid recipe %s", path), err)
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to resolve recipe directory", err)
	}
	d, err := Compile(doc, root)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid recipe %s", path), err)
	}
	slog.Debug("loaded recipe", "ref", d.Meta.Reference().String(), "path", path)
	return d, nil
}

// LoadDir loads the recipe file of dir.
func LoadDir(ctx context.Context, dir string) (*recipe.Definition, error) {
	path, err := findRecipeFile(dir)
	if err != nil {
		return nil, err
	}
	return Load(ctx, path)
}

func findRecipeFile(dir string) (string, error) {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("no recipe file in %s", dir))
}

// LoadCatalog registers every recipe found below root. A directory holding
// a recipe file is not searched further; hidden directories are skipped.
func LoadCatalog(ctx context.Context, root string) (*recipe.Catalog, error) {
	c := recipe.NewCatalog()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		file, ferr := findRecipeFile(p)
		if ferr != nil {
			return nil
		}
		def, err := Load(ctx, file)
		if err != nil {
			return err
		}
		if err := c.Register(def); err != nil {
			return err
		}
		return filepath.SkipDir
	})
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, "recipe loading canceled", err)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, fmt.Sprintf("failed to scan recipes in %s", root), err)
	}
	slog.Debug("loaded recipe catalog", "root", root, "recipes", c.Count())
	return c, nil
}
