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

package serializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reader decodes JSON or YAML documents.
type Reader struct {
	format Format
	input  io.Reader
	strict bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithStrict rejects fields the target type does not declare.
func WithStrict() ReaderOption {
	return func(r *Reader) {
		r.strict = true
	}
}

// NewReader returns a Reader decoding input. Table format cannot be read.
func NewReader(format Format, input io.Reader, opts ...ReaderOption) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}
	if format == FormatTable {
		return nil, fmt.Errorf("table format does not support deserialization")
	}
	r := &Reader{format: format, input: input}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Deserialize decodes one document into v.
func (r *Reader) Deserialize(v any) error {
	if r == nil || r.input == nil {
		return fmt.Errorf("input source is nil")
	}
	switch r.format {
	case FormatJSON:
		dec := json.NewDecoder(r.input)
		if r.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
		return nil
	case FormatYAML:
		dec := yaml.NewDecoder(r.input)
		dec.KnownFields(r.strict)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
}

// ReadSource returns the content of a local path or an http(s) URL.
func ReadSource(ctx context.Context, source string) ([]byte, error) {
	if isRemote(source) {
		return Fetch(ctx, nil, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return data, nil
}

// FromFile decodes the document at source into a new T. The format
// follows the path extension of source.
func FromFile[T any](ctx context.Context, source string, opts ...ReaderOption) (*T, error) {
	format := FormatFromPath(sourcePath(source))
	slog.Debug("reading document", "source", source, "format", string(format))

	data, err := ReadSource(ctx, source)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(format, bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	var v T
	if err := r.Deserialize(&v); err != nil {
		return nil, fmt.Errorf("failed to deserialize %q: %w", source, err)
	}
	return &v, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// sourcePath strips the query of a URL so the extension can be inspected.
func sourcePath(source string) string {
	if !isRemote(source) {
		return source
	}
	u, err := url.Parse(source)
	if err != nil {
		return source
	}
	return u.Path
}
