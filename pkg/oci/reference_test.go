package oci

import (
	"testing"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		registry   string
		repository string
		tag        string
		wantErr    bool
	}{
		{
			name:       "registry and repository",
			input:      "oci://ghcr.io/voicetuber/packages",
			registry:   "ghcr.io",
			repository: "voicetuber/packages",
		},
		{
			name:       "with tag",
			input:      "oci://ghcr.io/voicetuber/packages:nightly",
			registry:   "ghcr.io",
			repository: "voicetuber/packages",
			tag:        "nightly",
		},
		{
			name:       "local registry with port",
			input:      "oci://localhost:5000/kiln",
			registry:   "localhost:5000",
			repository: "kiln",
		},
		{
			name:       "protocol prefix",
			input:      "oci://https://registry.example.com/team/pkgs",
			registry:   "registry.example.com",
			repository: "team/pkgs",
		},
		{name: "missing scheme", input: "ghcr.io/voicetuber/packages", wantErr: true},
		{name: "uppercase repository", input: "oci://ghcr.io/VoiceTuber", wantErr: true},
		{name: "digest", input: "oci://ghcr.io/kiln@sha256:" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReference(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseReference(%q) expected error", tt.input)
				}
				if code := apperrors.CodeOf(err); code != apperrors.ErrCodeInvalidRequest {
					t.Errorf("code = %s, want %s", code, apperrors.ErrCodeInvalidRequest)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReference(%q) unexpected error: %v", tt.input, err)
			}
			if got.Registry != tt.registry {
				t.Errorf("Registry = %q, want %q", got.Registry, tt.registry)
			}
			if got.Repository != tt.repository {
				t.Errorf("Repository = %q, want %q", got.Repository, tt.repository)
			}
			if got.Tag != tt.tag {
				t.Errorf("Tag = %q, want %q", got.Tag, tt.tag)
			}
		})
	}
}

func TestReferenceFormatting(t *testing.T) {
	ref := &Reference{Registry: "ghcr.io", Repository: "voicetuber/packages"}
	if got := ref.String(); got != "oci://ghcr.io/voicetuber/packages" {
		t.Errorf("String() = %q", got)
	}
	if got := ref.Repo("sdl"); got != "ghcr.io/voicetuber/packages/sdl" {
		t.Errorf("Repo() = %q", got)
	}
	if got := ref.ImageReference("sdl", "2.30.0-abc"); got != "ghcr.io/voicetuber/packages/sdl:2.30.0-abc" {
		t.Errorf("ImageReference() = %q", got)
	}

	ref.Tag = "nightly"
	if got := ref.String(); got != "oci://ghcr.io/voicetuber/packages:nightly" {
		t.Errorf("String() with tag = %q", got)
	}
}

func TestIsTarget(t *testing.T) {
	if !IsTarget("oci://ghcr.io/x") {
		t.Error("expected oci:// target")
	}
	if IsTarget("s3://bucket/prefix") || IsTarget("./out") {
		t.Error("unexpected oci target")
	}
}
