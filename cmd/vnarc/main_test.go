package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vnarc/internal/testutil"
)

func writeArchive(t *testing.T, dir, name string, files []testutil.MPKFile) string {
	t.Helper()
	data, _ := testutil.BuildMPK(t, testutil.MPKArchive{Major: 2, Files: files})
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestList(t *testing.T) {
	t.Parallel()

	script := testutil.Compressible(3000)
	path := writeArchive(t, t.TempDir(), "script.mpk", []testutil.MPKFile{
		{ID: 3, Name: "start.nss", Data: script, Compress: true},
	})

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"list", "-digest", path}, &stdout, &stderr))
	out := stdout.String()
	assert.Contains(t, out, "mpk-v2 2.0, 1 entries")
	assert.Contains(t, out, "start.nss")
	assert.Contains(t, out, "deflate")
	assert.Contains(t, out, digest.FromBytes(script).String())
}

func TestExtractSeveralArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeArchive(t, dir, "bg.mpk", []testutil.MPKFile{
		{ID: 0, Name: `day\park.png`, Data: []byte("park")},
		{ID: 1, Name: "night/street.png", Data: testutil.Compressible(4000), Compress: true},
	})
	b := writeArchive(t, dir, "se.mpk", []testutil.MPKFile{{ID: 0, Name: "click.ogg", Data: []byte("click")}})

	out := filepath.Join(dir, "out")
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"extract", "-o", out, a, b}, &stdout, &stderr))

	got, err := os.ReadFile(filepath.Join(out, "bg", "day", "park.png"))
	require.NoError(t, err)
	assert.Equal(t, "park", string(got))
	got, err = os.ReadFile(filepath.Join(out, "bg", "night", "street.png"))
	require.NoError(t, err)
	assert.Equal(t, testutil.Compressible(4000), got)
	got, err = os.ReadFile(filepath.Join(out, "se", "click.ogg"))
	require.NoError(t, err)
	assert.Equal(t, "click", string(got))
}

func TestExtractRejectsEscapingNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeArchive(t, dir, "evil.mpk", []testutil.MPKFile{{Name: "../../escape.txt", Data: []byte("x")}})

	var stdout, stderr bytes.Buffer
	err := run([]string{"extract", "-o", filepath.Join(dir, "out"), path}, &stdout, &stderr)
	require.ErrorContains(t, err, "unsafe name")
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestReplace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeArchive(t, dir, "script.mpk", []testutil.MPKFile{
		{ID: 0, Name: "start.nss", Data: testutil.Compressible(3000), Compress: true},
		{ID: 1, Name: "end.nss", Data: []byte("fin")},
	})
	patch := filepath.Join(dir, "patch.nss")
	require.NoError(t, os.WriteFile(patch, []byte("patched script"), 0o600))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-v", "replace", "-temp-dir", dir, path, "START.NSS", patch}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "replaced")

	out := filepath.Join(dir, "out")
	require.NoError(t, run([]string{"extract", "-o", out, path}, &stdout, &stderr))
	got, err := os.ReadFile(filepath.Join(out, "start.nss"))
	require.NoError(t, err)
	assert.Equal(t, "patched script", string(got))
	got, err = os.ReadFile(filepath.Join(out, "end.nss"))
	require.NoError(t, err)
	assert.Equal(t, "fin", string(got))
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.ErrorIs(t, run(nil, &stdout, &stderr), errUsage)
	require.ErrorIs(t, run([]string{"pack"}, &stdout, &stderr), errUsage)

	err := run([]string{"list"}, &stdout, &stderr)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "usage:"))
}
