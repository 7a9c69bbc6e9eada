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
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Format is an archive format.
type Format string

// Supported archive formats.
const (
	FormatTar     Format = ".tar"
	FormatTarGzip Format = ".tar.gz"
	FormatTarXz   Format = ".tar.xz"
	FormatTarZstd Format = ".tar.zst"
)

// FormatFromPath infers the archive format from a file name.
func FormatFromPath(p string) (Format, error) {
	switch {
	case strings.HasSuffix(p, ".tar.zst"), strings.HasSuffix(p, ".tzst"):
		return FormatTarZstd, nil
	case strings.HasSuffix(p, ".tar.gz"), strings.HasSuffix(p, ".tgz"):
		return FormatTarGzip, nil
	case strings.HasSuffix(p, ".tar.xz"), strings.HasSuffix(p, ".txz"):
		return FormatTarXz, nil
	case strings.HasSuffix(p, ".tar"):
		return FormatTar, nil
	default:
		return "", fmt.Errorf("unsupported archive format: %s", p)
	}
}

// ArchiveDir writes srcDir to dst atomically in the format implied by dst.
func ArchiveDir(ctx context.Context, srcDir, dst string) error {
	format, err := FormatFromPath(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".archive-*")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	name := tmp.Name()
	if err := WriteArchive(ctx, srcDir, tmp, format); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, dst); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// WriteArchive streams a reproducible tarball of srcDir to w: entries in
// lexical order, root ownership and a fixed modification time.
func WriteArchive(ctx context.Context, srcDir string, w io.Writer, format Format) error {
	cw, err := compressor(w, format)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return addEntry(tw, p, filepath.ToSlash(rel), d)
	})
	if walkErr != nil {
		_ = tw.Close()
		_ = cw.Close()
		return fmt.Errorf("failed to add files to archive: %w", walkErr)
	}
	if err := tw.Close(); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

var epoch = time.Unix(0, 0).UTC()

func addEntry(tw *tar.Writer, p, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return fmt.Errorf("readlink %s: %w", p, err)
		}
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = rel
	if info.IsDir() {
		hdr.Name += "/"
	}
	hdr.ModTime = epoch
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "root", "root"
	hdr.Format = tar.FormatPAX

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compressor(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case FormatTar:
		return nopWriteCloser{w}, nil
	case FormatTarGzip:
		return pgzip.NewWriter(w), nil
	case FormatTarXz:
		return xz.NewWriter(w)
	case FormatTarZstd:
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}
}

func decompressor(r io.Reader, format Format) (io.Reader, func(), error) {
	switch format {
	case FormatTar:
		return r, func() {}, nil
	case FormatTarGzip:
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xr, func() {}, nil
	case FormatTarZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive format: %s", format)
	}
}

// Unpack extracts the archive at src into dst. Entries escaping dst are rejected.
func Unpack(ctx context.Context, src, dst string) error {
	format, err := FormatFromPath(src)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return Extract(ctx, f, format, dst)
}

// Extract reads an archive stream in format into dst.
func Extract(ctx context.Context, r io.Reader, format Format, dst string) error {
	dr, closeFn, err := decompressor(r, format)
	if err != nil {
		return err
	}
	defer closeFn()

	tr := tar.NewReader(dr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		name := path.Clean(hdr.Name)
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return fmt.Errorf("archive entry %q escapes destination", hdr.Name)
		}
		target := filepath.Join(dst, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := extractFile(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func extractFile(r io.Reader, target string, mode fs.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
