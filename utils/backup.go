package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// The three collection documents managed by the store. Backup and export
// operate on the files directly so they work against a stopped server.
var dataFiles = []string{"tournaments.json", "prompts.json", "results.json"}

const backupPrefix = "data_backup_"

// DataFiles returns the collection file names.
func DataFiles() []string {
	return append([]string(nil), dataFiles...)
}

// CopyFile copies src to dst, creating dst's directory if needed.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// SnapshotData copies the collection documents into a timestamped
// directory under backupRoot and returns its path. Missing documents are
// skipped (a fresh install has none yet).
func SnapshotData(dataDir, backupRoot string) (string, error) {
	backupDir := filepath.Join(backupRoot, backupPrefix+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(backupDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	for _, name := range dataFiles {
		src := filepath.Join(dataDir, name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := CopyFile(src, filepath.Join(backupDir, name)); err != nil {
			return "", fmt.Errorf("failed to back up %s: %w", name, err)
		}
	}
	return backupDir, nil
}

// RestoreData copies the documents from a snapshot directory back into
// dataDir, overwriting the current state.
func RestoreData(dataDir, backupDir string) error {
	if _, err := os.Stat(backupDir); err != nil {
		return fmt.Errorf("backup directory %s not found", backupDir)
	}
	for _, name := range dataFiles {
		src := filepath.Join(backupDir, name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := CopyFile(src, filepath.Join(dataDir, name)); err != nil {
			return fmt.Errorf("failed to restore %s: %w", name, err)
		}
	}
	return nil
}

// ListBackups returns the snapshot directories under backupRoot, newest
// first.
func ListBackups(backupRoot string) ([]string, error) {
	entries, err := os.ReadDir(backupRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var backups []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			backups = append(backups, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// ExportPayload is the merged single-file export format.
type ExportPayload struct {
	Tournaments json.RawMessage `json:"tournaments"`
	Prompts     json.RawMessage `json:"prompts"`
	Results     json.RawMessage `json:"results"`
	ExportedAt  time.Time       `json:"exported_at"`
}

func readCollection(dataDir, name string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, name))
	if os.IsNotExist(err) {
		return json.RawMessage("{}"), nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// ExportData merges the three documents into a single export file.
func ExportData(dataDir, exportFile string) error {
	payload := ExportPayload{ExportedAt: time.Now().UTC()}

	var err error
	if payload.Tournaments, err = readCollection(dataDir, "tournaments.json"); err != nil {
		return fmt.Errorf("failed to read tournaments: %w", err)
	}
	if payload.Prompts, err = readCollection(dataDir, "prompts.json"); err != nil {
		return fmt.Errorf("failed to read prompts: %w", err)
	}
	if payload.Results, err = readCollection(dataDir, "results.json"); err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(exportFile, data, 0o644)
}

// ImportData splits a merged export file back into the three documents.
func ImportData(dataDir, importFile string) error {
	data, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("import file %s not found", importFile)
	}

	var payload ExportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid export file: %w", err)
	}
	if payload.Tournaments == nil || payload.Prompts == nil || payload.Results == nil {
		return fmt.Errorf("invalid export file format: expected tournaments, prompts, and results")
	}

	if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
		return err
	}
	for name, raw := range map[string]json.RawMessage{
		"tournaments.json": payload.Tournaments,
		"prompts.json":     payload.Prompts,
		"results.json":     payload.Results,
	} {
		if err := os.WriteFile(filepath.Join(dataDir, name), raw, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
