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

package s3

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/voicetuber/kiln/pkg/artifact"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// URIScheme is the URI scheme for S3 targets (e.g., "s3://bucket/prefix").
const URIScheme = "s3://"

// IsTarget reports whether target uses the s3:// scheme.
func IsTarget(target string) bool {
	return strings.HasPrefix(target, URIScheme)
}

// Target is a parsed S3 publish location.
type Target struct {
	Bucket string
	Prefix string
}

// ParseTarget parses "s3://bucket[/prefix]".
func ParseTarget(target string) (*Target, error) {
	if !IsTarget(target) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid S3 target %q: expected %sbucket/prefix", target, URIScheme))
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(target, URIScheme), "/")
	if bucket == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid S3 target %q: missing bucket", target))
	}
	return &Target{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// String returns the target in s3:// form.
func (t *Target) String() string {
	if t.Prefix == "" {
		return URIScheme + t.Bucket
	}
	return URIScheme + t.Bucket + "/" + t.Prefix
}

// Key joins parts under the target prefix.
func (t *Target) Key(parts ...string) string {
	return path.Join(append([]string{t.Prefix}, parts...)...)
}

// API is the subset of the S3 client used for publishing.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// Uploader publishes package archives to S3.
type Uploader struct {
	client   API
	target   Target
	format   artifact.Format
	region   string
	endpoint string
	static   *credentials.StaticCredentialsProvider
}

// Option is a functional option for configuring Uploader instances.
type Option func(*Uploader)

// WithClient uses an existing client instead of loading AWS configuration.
func WithClient(c API) Option {
	return func(u *Uploader) {
		u.client = c
	}
}

// WithFormat sets the archive format of uploaded packages.
func WithFormat(f artifact.Format) Option {
	return func(u *Uploader) {
		u.format = f
	}
}

// WithRegion overrides the region from the AWS environment.
func WithRegion(region string) Option {
	return func(u *Uploader) {
		u.region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint (MinIO, R2)
// using path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(u *Uploader) {
		u.endpoint = endpoint
	}
}

// WithStaticCredentials uses fixed credentials instead of the default chain.
func WithStaticCredentials(accessKey, secretKey, sessionToken string) Option {
	return func(u *Uploader) {
		p := credentials.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
		u.static = &p
	}
}

// New creates an Uploader for target. Without WithClient the AWS
// configuration is loaded from the environment and shared config files.
func New(ctx context.Context, target Target, opts ...Option) (*Uploader, error) {
	u := &Uploader{
		target: target,
		format: artifact.FormatTarZstd,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.client != nil {
		return u, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if u.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(u.region))
	}
	if u.static != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(*u.static))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to load AWS config", err)
	}
	u.client = awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if u.endpoint != "" {
			o.BaseEndpoint = aws.String(u.endpoint)
			o.UsePathStyle = true
		}
	})
	return u, nil
}

// UploadResult describes the objects written for one package.
type UploadResult struct {
	ArchiveKey  string
	ManifestKey string
	ETag        string
}

// Upload archives pkg and writes it with its manifest to
// <prefix>/<name>/<version>/<package id><ext>.
func (u *Uploader) Upload(ctx context.Context, pkg *artifact.Package) (*UploadResult, error) {
	tmpDir, err := os.MkdirTemp("", "kiln-s3-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create temp directory", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	archive := filepath.Join(tmpDir, pkg.ID+string(u.format))
	if err := pkg.Archive(ctx, archive); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeArtifactStaging, "failed to archive package", err,
			map[string]any{apperrors.ContextNode: pkg.Ref.String()})
	}

	res := &UploadResult{
		ArchiveKey:  u.target.Key(pkg.Ref.Name, pkg.Ref.Version, pkg.ID+string(u.format)),
		ManifestKey: u.target.Key(pkg.Ref.Name, pkg.Ref.Version, pkg.ID+".yaml"),
	}
	meta := map[string]string{
		"kiln-ref":        pkg.Ref.String(),
		"kiln-package-id": pkg.ID,
	}

	etag, err := u.putFile(ctx, res.ArchiveKey, archive, contentType(u.format), meta)
	if err != nil {
		return nil, u.uploadError(ctx, pkg, res.ArchiveKey, err)
	}
	res.ETag = etag

	if _, err := u.putFile(ctx, res.ManifestKey, pkg.Path(artifact.ManifestFileName), "application/yaml", meta); err != nil {
		return nil, u.uploadError(ctx, pkg, res.ManifestKey, err)
	}

	slog.Info("package uploaded", "ref", pkg.Ref.String(), "package_id", pkg.ID,
		"bucket", u.target.Bucket, "key", res.ArchiveKey)
	return res, nil
}

func (u *Uploader) putFile(ctx context.Context, key, file, ctype string, meta map[string]string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	out, err := u.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(u.target.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(ctype),
		Metadata:      meta,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.ETag), nil
}

func (u *Uploader) uploadError(ctx context.Context, pkg *artifact.Package, key string, err error) error {
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.ErrCodeTimeout, "upload canceled", err)
	}
	return apperrors.WrapWithContext(apperrors.ErrCodeInternal,
		fmt.Sprintf("failed to upload s3://%s/%s", u.target.Bucket, key), err,
		map[string]any{apperrors.ContextNode: pkg.Ref.String()})
}

func contentType(f artifact.Format) string {
	switch f {
	case artifact.FormatTarZstd:
		return "application/zstd"
	case artifact.FormatTarGzip:
		return "application/gzip"
	case artifact.FormatTarXz:
		return "application/x-xz"
	default:
		return "application/x-tar"
	}
}
