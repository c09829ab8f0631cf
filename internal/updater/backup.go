package updater

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/iss-notify/internal/version"
)

const (
	backupFilename     = "iss-notify.backup"
	backupInfoFilename = "backup.toml"
)

// backupInfo is stored next to the saved binary.
type backupInfo struct {
	Version   string    `toml:"version"`
	CreatedAt time.Time `toml:"created_at"`
	ExecPath  string    `toml:"exec_path"`
}

// backupManager keeps one copy of the previous binary for Rollback.
type backupManager struct {
	dir    string
	logger *slog.Logger

	mu   sync.RWMutex
	info *backupInfo
}

func defaultBackupDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no cache directory for backups: %w", err)
	}
	return filepath.Join(cache, version.Name, "backup"), nil
}

func newBackupManager(dir string, logger *slog.Logger) (*backupManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	m := &backupManager{dir: dir, logger: logger}

	info, err := m.readInfo()
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		logger.Warn("Ignoring existing backup", "dir", dir, "error", err)
	default:
		m.info = info
		logger.Info("Found backup", "version", info.Version, "created", info.CreatedAt.Format(time.DateTime))
	}
	return m, nil
}

func (m *backupManager) binaryPath() string { return filepath.Join(m.dir, backupFilename) }
func (m *backupManager) infoPath() string   { return filepath.Join(m.dir, backupInfoFilename) }

// readInfo returns the stored metadata, provided the binary it describes is
// still there.
func (m *backupManager) readInfo() (*backupInfo, error) {
	data, err := os.ReadFile(m.infoPath())
	if err != nil {
		return nil, err
	}
	var info backupInfo
	if err := toml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", backupInfoFilename, err)
	}
	if _, err := os.Stat(m.binaryPath()); err != nil {
		return nil, fmt.Errorf("backup binary: %w", err)
	}
	return &info, nil
}

// createBackup saves the binary at execPath along with the running version.
func (m *backupManager) createBackup(execPath string) error {
	if err := copyFile(execPath, m.binaryPath()); err != nil {
		return fmt.Errorf("copy executable: %w", err)
	}

	info := &backupInfo{Version: version.Version, CreatedAt: time.Now(), ExecPath: execPath}
	data, err := toml.Marshal(info)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.infoPath(), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", backupInfoFilename, err)
	}

	m.mu.Lock()
	m.info = info
	m.mu.Unlock()
	m.logger.Info("Backup created", "version", info.Version, "path", m.binaryPath())
	return nil
}

// restore puts the saved binary back at the path it was taken from.
func (m *backupManager) restore() error {
	m.mu.RLock()
	info := m.info
	m.mu.RUnlock()
	if info == nil {
		return errors.New("no backup available")
	}

	if err := copyFile(m.binaryPath(), info.ExecPath); err != nil {
		return fmt.Errorf("restore %s: %w", info.ExecPath, err)
	}
	m.logger.Info("Backup restored", "version", info.Version, "path", info.ExecPath)
	return nil
}

func (m *backupManager) hasBackup() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info != nil
}

func (m *backupManager) backupVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return ""
	}
	return m.info.Version
}

// copyFile writes src to a temp file beside dst and renames it into place.
// A running executable cannot be truncated, but it can be replaced.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o755); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
