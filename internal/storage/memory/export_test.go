package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/pkg/core"
)

func TestFileName(t *testing.T) {
	rec := core.Recording{Session: core.Session{Name: "Night: Run/2", StartTime: start}}

	assert.Equal(t, "Night__Run_2_20260314_092653.json", FileName(rec, false))
	assert.Equal(t, "Night__Run_2_20260314_092653.json.gz", FileName(rec, true))
}

func TestWriteFileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	rec := core.Recording{Session: core.Session{Name: "x", StartTime: start}}

	path, err := WriteFile(dir, false, rec)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0644))
	_, err = ReadFile(bad)
	assert.Error(t, err)
}
