/*
Copyright © 2025 The Kiln Authors
SPDX-License-Identifier: Apache-2.0
*/

package oci

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	ocilayout "oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/voicetuber/kiln/pkg/artifact"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// ArtifactType is the media type for kiln package artifacts.
const ArtifactType = "application/vnd.kiln.package.v1"

// Manifest annotations set on every pushed package.
const (
	AnnotationRef       = "dev.kiln.package.ref"
	AnnotationPackageID = "dev.kiln.package.id"
	AnnotationType      = "dev.kiln.package.type"
)

// reproducibleCreated pins the manifest creation time so identical package
// trees produce identical digests.
const reproducibleCreated = "1970-01-01T00:00:00Z"

var invalidTagChars = regexp.MustCompile(`[^\w.-]`)

// PushOptions configures the OCI push operation.
type PushOptions struct {
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
	// Annotations are merged into the manifest annotations.
	Annotations map[string]string
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string
	// Reference is the full image reference (registry/repository/name:tag).
	Reference string
}

// DefaultTag returns the tag a package is pushed under when the target has
// none: the version plus the leading part of the package ID, so every
// configuration of a version gets its own tag.
func DefaultTag(pkg *artifact.Package) string {
	id := pkg.ID
	if len(id) > 12 {
		id = id[:12]
	}
	tag := invalidTagChars.ReplaceAllString(pkg.Ref.Version, "_") + "-" + id
	if len(tag) > 128 {
		tag = tag[:128]
	}
	return tag
}

// Layout packs pkg as an OCI artifact into an OCI image layout at layoutDir
// and tags it. The package tree becomes a single reproducible gzip layer.
func Layout(ctx context.Context, pkg *artifact.Package, layoutDir, tag string, annotations map[string]string) (ociv1.Descriptor, error) {
	// The file store writes titled blobs into its working directory, so it
	// must not be rooted at the published package.
	workDir, err := os.MkdirTemp("", "kiln-oci-store-*")
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to create store directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	fs, err := file.New(workDir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()

	fs.TarReproducible = true

	layerName := fmt.Sprintf("%s-%s", pkg.Ref.Name, pkg.Ref.Version)
	layerDesc, err := fs.Add(ctx, layerName, ociv1.MediaTypeImageLayerGzip, pkg.Dir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to add package tree: %w", err)
	}

	manifestAnnotations := map[string]string{
		ociv1.AnnotationCreated: reproducibleCreated,
		ociv1.AnnotationTitle:   pkg.Ref.Name,
		ociv1.AnnotationVersion: pkg.Ref.Version,
		AnnotationRef:           pkg.Ref.String(),
		AnnotationPackageID:     pkg.ID,
	}
	if t := pkg.Manifest.PackageType; t != "" {
		manifestAnnotations[AnnotationType] = string(t)
	}
	for k, v := range annotations {
		manifestAnnotations[k] = v
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layerDesc},
		ManifestAnnotations: manifestAnnotations,
	})
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to pack manifest: %w", err)
	}
	if err := fs.Tag(ctx, manifestDesc, tag); err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to tag manifest in local store: %w", err)
	}

	dst, err := ocilayout.New(layoutDir)
	if err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to open OCI layout %s: %w", layoutDir, err)
	}
	if _, err := oras.Copy(ctx, fs, tag, dst, tag, oras.DefaultCopyOptions); err != nil {
		return ociv1.Descriptor{}, fmt.Errorf("failed to write OCI layout: %w", err)
	}
	return manifestDesc, nil
}

// Push publishes pkg to the registry named by ref. The package goes to
// <registry>/<repository>/<name> under ref.Tag or DefaultTag.
func Push(ctx context.Context, pkg *artifact.Package, ref *Reference, opts PushOptions) (*PushResult, error) {
	if ref == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required")
	}
	tag := ref.Tag
	if tag == "" {
		tag = DefaultTag(pkg)
	}

	repo, err := remote.NewRepository(ref.Repo(pkg.Ref.Name))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	return push(ctx, pkg, repo, ref.ImageReference(pkg.Ref.Name, tag), tag, opts)
}

// push lays pkg out locally then copies it to dst.
func push(ctx context.Context, pkg *artifact.Package, dst oras.Target, imageRef, tag string, opts PushOptions) (*PushResult, error) {
	layoutDir, err := os.MkdirTemp("", "kiln-oci-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create temp directory", err)
	}
	defer func() { _ = os.RemoveAll(layoutDir) }()

	if _, err := Layout(ctx, pkg, layoutDir, tag, opts.Annotations); err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal, "failed to package OCI artifact", err,
			map[string]any{apperrors.ContextNode: pkg.Ref.String()})
	}
	src, err := ocilayout.New(layoutDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to open OCI layout", err)
	}

	slog.Info("pushing package to registry", "ref", pkg.Ref.String(), "package_id", pkg.ID, "reference", imageRef)

	desc, err := oras.Copy(ctx, src, tag, dst, tag, oras.DefaultCopyOptions)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, "push canceled", err)
		}
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInternal, "failed to push artifact to registry", err,
			map[string]any{apperrors.ContextNode: pkg.Ref.String()})
	}

	slog.Info("package pushed", "reference", imageRef, "digest", desc.Digest.String())
	return &PushResult{Digest: desc.Digest.String(), Reference: imageRef}, nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, _ := credentials.NewStoreFromDocker(credentials.StoreOptions{})

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
