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
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumFileName is the standard name for checksum files.
const ChecksumFileName = "checksums.txt"

// GenerateChecksums writes checksums.txt into dir with the SHA256 of every
// regular file below it, one "<hex>  <relative path>" line per file in
// lexical order.
func GenerateChecksums(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	files, err := listFiles(dir)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		sum, err := fileSHA256(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("failed to read %s for checksum: %w", rel, err)
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, rel)
	}

	path := filepath.Join(dir, ChecksumFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write checksums: %w", err)
	}

	slog.Debug("checksums generated",
		"file_count", len(files),
		"path", path,
	)
	return nil
}

// VerifyChecksums checks every entry of dir's checksums.txt, that no listed
// file is missing, and that no unlisted file was added.
func VerifyChecksums(ctx context.Context, dir string) error {
	f, err := os.Open(filepath.Join(dir, ChecksumFileName))
	if err != nil {
		return fmt.Errorf("failed to open checksums: %w", err)
	}
	defer f.Close()

	listed := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}
		want, rel, ok := strings.Cut(scanner.Text(), "  ")
		if !ok {
			return fmt.Errorf("malformed checksum line %q", scanner.Text())
		}
		listed[rel] = true
		got, err := fileSHA256(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		if got != want {
			return fmt.Errorf("checksum mismatch for %s", rel)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	files, err := listFiles(dir)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if !listed[rel] {
			return fmt.Errorf("unexpected file %s not in checksums", rel)
		}
	}
	return nil
}

// GetChecksumFilePath returns the full path to the checksums.txt file in dir.
func GetChecksumFilePath(dir string) string {
	return filepath.Join(dir, ChecksumFileName)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// listFiles returns slash-separated paths of regular files below dir,
// excluding checksums.txt, in lexical order.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ChecksumFileName {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}
