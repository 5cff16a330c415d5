package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// backupTimeFormat sorts lexically in chronological order.
const backupTimeFormat = "2006-01-02T15-04-05.000Z"

// Save writes cfg to path as YAML, creating the parent directory if needed.
// An existing file is first copied to <dir>/backups/config-<timestamp><ext>
// and only the newest MaxBackups backups are kept.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := backup(path); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	// Write to a temp file first so a watcher never sees a half-written file.
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace configuration: %w", err)
	}

	slog.Info("configuration saved", "path", path)
	return nil
}

// backup copies path into the backups directory and prunes old copies.
func backup(path string) error {
	backupDir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := "config-" + time.Now().UTC().Format(backupTimeFormat) + filepath.Ext(path)
	if err := copyFile(path, filepath.Join(backupDir, name)); err != nil {
		return fmt.Errorf("failed to back up configuration: %w", err)
	}

	return pruneBackups(backupDir, MaxBackups)
}

// ListBackups returns backup file names for the config at path, newest first.
func ListBackups(path string) ([]string, error) {
	return listBackups(filepath.Join(filepath.Dir(path), "backups"))
}

func listBackups(backupDir string) ([]string, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "config-") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func pruneBackups(backupDir string, keep int) error {
	names, err := listBackups(backupDir)
	if err != nil {
		return err
	}

	for _, name := range names[min(keep, len(names)):] {
		if err := os.Remove(filepath.Join(backupDir, name)); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove old config backup", "file", name, "error", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
