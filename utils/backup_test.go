package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataFiles(t *testing.T, dataDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, os.ModePerm))
	for _, name := range DataFiles() {
		content := []byte(`{"` + name + `": {"id": "x"}}`)
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), content, 0o644))
	}
}

func TestSnapshotAndRestore(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	backupRoot := filepath.Join(t.TempDir(), "backups")
	writeDataFiles(t, dataDir)

	backupDir, err := SnapshotData(dataDir, backupRoot)
	require.NoError(t, err)
	for _, name := range DataFiles() {
		assert.FileExists(t, filepath.Join(backupDir, name))
	}

	// Clobber the live data, then restore the snapshot over it.
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "tournaments.json"), []byte("{}"), 0o644))
	require.NoError(t, RestoreData(dataDir, backupDir))

	restored, err := os.ReadFile(filepath.Join(dataDir, "tournaments.json"))
	require.NoError(t, err)
	assert.Contains(t, string(restored), `"id": "x"`)
}

func TestSnapshotSkipsMissingFiles(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(dataDir, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "tournaments.json"), []byte("{}"), 0o644))

	backupDir, err := SnapshotData(dataDir, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(backupDir, "tournaments.json"))
	assert.NoFileExists(t, filepath.Join(backupDir, "results.json"))
}

func TestRestoreMissingBackupDir(t *testing.T) {
	err := RestoreData(t.TempDir(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestListBackups(t *testing.T) {
	backupRoot := t.TempDir()
	for _, name := range []string{
		backupPrefix + "20240101_000000",
		backupPrefix + "20240301_000000",
		backupPrefix + "20240201_000000",
		"unrelated_dir",
	} {
		require.NoError(t, os.Mkdir(filepath.Join(backupRoot, name), os.ModePerm))
	}
	require.NoError(t, os.WriteFile(filepath.Join(backupRoot, backupPrefix+"not_a_dir"), nil, 0o644))

	backups, err := ListBackups(backupRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{
		backupPrefix + "20240301_000000",
		backupPrefix + "20240201_000000",
		backupPrefix + "20240101_000000",
	}, backups)
}

func TestListBackupsMissingRoot(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestExportImportRoundtrip(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	writeDataFiles(t, dataDir)
	exportFile := filepath.Join(t.TempDir(), "export.json")

	require.NoError(t, ExportData(dataDir, exportFile))

	raw, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	var payload ExportPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.False(t, payload.ExportedAt.IsZero())
	assert.Contains(t, string(payload.Prompts), `"id": "x"`)

	target := filepath.Join(t.TempDir(), "fresh")
	require.NoError(t, ImportData(target, exportFile))
	for _, name := range DataFiles() {
		assert.FileExists(t, filepath.Join(target, name))
	}
}

func TestImportRejectsInvalidPayload(t *testing.T) {
	importFile := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(importFile, []byte(`{"tournaments": {}}`), 0o644))

	err := ImportData(t.TempDir(), importFile)
	assert.ErrorContains(t, err, "invalid export file format")
}

func TestExportMissingDataDirProducesEmptyCollections(t *testing.T) {
	exportFile := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, ExportData(filepath.Join(t.TempDir(), "nope"), exportFile))

	raw, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	var payload ExportPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.JSONEq(t, "{}", string(payload.Tournaments))
}
