package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindIsValid(t *testing.T) {
	for _, k := range []Kind{KindPackage, KindProfile, KindBuildResult, KindGraph, KindPackageList} {
		assert.True(t, k.IsValid(), k)
	}
	bogus := Kind("Snapshot")
	assert.False(t, bogus.IsValid())
}

func TestNew(t *testing.T) {
	h := New(WithKind(KindPackage), WithAPIVersion(APIVersion), WithMetadata("version", "v1.2.3"))
	assert.Equal(t, KindPackage, h.GetKind())
	assert.Equal(t, APIVersion, h.APIVersion)
	assert.Equal(t, map[string]string{"version": "v1.2.3"}, h.GetMetadata())

	empty := New()
	assert.NotNil(t, empty.Metadata)
}

func TestInit(t *testing.T) {
	var h Header
	h.Init(KindBuildResult, APIVersion, "v0.1.0")
	assert.Equal(t, KindBuildResult, h.Kind)
	assert.Equal(t, "v0.1.0", h.Metadata["version"])
	assert.NotEmpty(t, h.Metadata["timestamp"])

	h.Init(KindGraph, APIVersion, "")
	_, ok := h.Metadata["version"]
	assert.False(t, ok)
}

func TestExpect(t *testing.T) {
	tests := []struct {
		name    string
		header  Header
		kind    Kind
		wantErr bool
	}{
		{name: "match", header: Header{Kind: KindProfile, APIVersion: APIVersion}, kind: KindProfile},
		{name: "no api version", header: Header{Kind: KindProfile}, kind: KindProfile},
		{name: "wrong kind", header: Header{Kind: KindPackage}, kind: KindProfile, wantErr: true},
		{name: "wrong api version", header: Header{Kind: KindProfile, APIVersion: "v2"}, kind: KindProfile, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.Expect(tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
