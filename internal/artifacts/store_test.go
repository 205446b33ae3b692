package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreCreatesNamespacedTree(t *testing.T) {
	workspace := t.TempDir()

	store, err := NewStore(workspace)
	require.NoError(t, err)

	assert.NotEmpty(t, store.RunID())
	assert.DirExists(t, store.RunDir())
	assert.DirExists(t, store.RendersDir())
	assert.Equal(t, filepath.Join(workspace, "runs", store.RunID()), store.RunDir())
}

func TestStoresDoNotCollide(t *testing.T) {
	workspace := t.TempDir()

	first, err := NewStore(workspace)
	require.NoError(t, err)
	second, err := NewStore(workspace)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunDir(), second.RunDir())
}

func TestScriptPathNaming(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(store.RunDir(), "iteration_00.py"), store.ScriptPath(0))
	assert.Equal(t, filepath.Join(store.RunDir(), "iteration_07.py"), store.ScriptPath(7))
}

func TestWriteLog(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteLog(1, []string{"line one", "line two"}))

	data, err := os.ReadFile(filepath.Join(store.RunDir(), "iteration_01.log"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))
}

func TestWriteReport(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	report := map[string]any{"requirement": "box", "status": "succeeded"}
	require.NoError(t, store.WriteReport(report))

	data, err := os.ReadFile(filepath.Join(store.RunDir(), "report.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "box", decoded["requirement"])
	assert.Equal(t, "succeeded", decoded["status"])
}

func TestNewStoreUnwritableWorkspace(t *testing.T) {
	_, err := NewStore(string([]byte{0}))
	assert.Error(t, err)
}
