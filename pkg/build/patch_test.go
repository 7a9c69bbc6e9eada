package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetuber/kiln/pkg/recipe"
)

// appendPatcher treats a patch file's content as text appended to
// patched.txt, failing on patches named "broken.patch".
type appendPatcher struct {
	strips []int
}

func (p *appendPatcher) Apply(_ context.Context, dir, patchFile string, strip int) error {
	p.strips = append(p.strips, strip)
	if filepath.Base(patchFile) == "broken.patch" {
		return errors.New("hunk #1 FAILED")
	}
	data, err := os.ReadFile(patchFile)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "patched.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func patchFixture(t *testing.T) (src, patches string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "src")
	patches = filepath.Join(root, "patches")
	writeTree(t, src, map[string]string{"patched.txt": "base\n"})
	writeTree(t, patches, map[string]string{
		"0001-fix.patch": "one\n",
		"0002-fix.patch": "two\n",
		"broken.patch":   "never\n",
	})
	return src, patches
}

func siblings(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestApplyPatchesAll(t *testing.T) {
	src, patchDir := patchFixture(t)
	p := &appendPatcher{}

	err := ApplyPatches(context.Background(), p, src, patchDir, []recipe.Patch{
		{File: "0001-fix.patch"},
		{File: "0002-fix.patch", Strip: 2},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(src, "patched.txt"))
	require.NoError(t, err)
	assert.Equal(t, "base\none\ntwo\n", string(data))
	assert.Equal(t, []int{1, 2}, p.strips)
	assert.ElementsMatch(t, []string{"src", "patches"}, siblings(t, src))
}

func TestApplyPatchesAllOrNothing(t *testing.T) {
	src, patchDir := patchFixture(t)

	err := ApplyPatches(context.Background(), &appendPatcher{}, src, patchDir, []recipe.Patch{
		{File: "0001-fix.patch"},
		{File: "broken.patch"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.patch")

	data, err := os.ReadFile(filepath.Join(src, "patched.txt"))
	require.NoError(t, err)
	assert.Equal(t, "base\n", string(data))
	assert.ElementsMatch(t, []string{"src", "patches"}, siblings(t, src))
}

func TestApplyPatchesNone(t *testing.T) {
	src, patchDir := patchFixture(t)
	require.NoError(t, ApplyPatches(context.Background(), &appendPatcher{}, src, patchDir, nil))
}

func TestCommandPatcherArgs(t *testing.T) {
	r := &recordingRunner{}
	p := &CommandPatcher{Runner: r}
	require.NoError(t, p.Apply(context.Background(), "/w/src", "/r/patches/fix.patch", 1))
	require.Len(t, r.commands, 1)
	assert.Equal(t, "patch", r.commands[0].Name)
	assert.Equal(t, "/w/src", r.commands[0].Dir)
	assert.Equal(t, []string{"-p1", "--batch", "--forward", "-i", "/r/patches/fix.patch"}, r.commands[0].Args)
}
