// Package updater checks GitHub releases and replaces the running binary,
// keeping the previous one for rollback.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/iss-notify/internal/version"
)

// Updater checks for and applies releases of the running binary.
type Updater struct {
	repository selfupdate.Repository
	updater    *selfupdate.Updater
	backups    *backupManager
	execPath   string

	mu            sync.RWMutex
	state         State
	latestRelease *selfupdate.Release
	lastChecked   *time.Time
	lastError     error

	enabled        bool
	disabledReason string

	logger *slog.Logger
}

// New creates an updater. The updater is disabled, not failed, when the
// binary's directory is not writable.
func New(opts Options, logger *slog.Logger) (*Updater, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}

	execPath, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	if canWrite, reason := checkWritePermission(execPath); !canWrite {
		logger.Warn("Update disabled", "reason", reason)
		return &Updater{
			enabled:        false,
			disabledReason: reason,
			state:          StateIdle,
			logger:         logger,
		}, nil
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	backupDir := opts.BackupDir
	if backupDir == "" {
		if backupDir, err = defaultBackupDir(); err != nil {
			logger.Warn("Backups disabled", "error", err)
		}
	}
	var backups *backupManager
	if backupDir != "" {
		if backups, err = newBackupManager(backupDir, logger); err != nil {
			logger.Warn("Failed to create backup manager", "error", err)
		}
	}

	return &Updater{
		repository: selfupdate.ParseSlug(opts.Repository),
		updater:    updater,
		backups:    backups,
		execPath:   execPath,
		state:      StateIdle,
		enabled:    true,
		logger:     logger,
	}, nil
}

// checkWritePermission probes the directory holding the executable.
func checkWritePermission(execPath string) (bool, string) {
	exe, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return false, fmt.Sprintf("failed to resolve symlinks: %v", err)
	}

	dir := filepath.Dir(exe)
	tmp := filepath.Join(dir, ".iss-notify.update.test")
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	f.Close()
	os.Remove(tmp)
	return true, ""
}

// IsEnabled returns whether updates can be applied.
func (u *Updater) IsEnabled() bool {
	return u.enabled
}

// DisabledReason returns why updates are disabled, empty if enabled.
func (u *Updater) DisabledReason() string {
	return u.disabledReason
}

// Check queries GitHub for the latest release and compares it against the
// running version without downloading anything.
func (u *Updater) Check(ctx context.Context) (*UpdateInfo, error) {
	if !u.enabled {
		return nil, newError(ErrCodeDisabled, u.disabledReason, nil)
	}

	if !u.transitionTo(StateChecking, StateIdle, StateAvailable, StateError) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot check for updates in state %s", u.getState()), nil)
	}

	current := version.Version

	release, found, err := u.updater.DetectLatest(ctx, u.repository)
	if err != nil {
		u.setError(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}

	now := time.Now()
	u.mu.Lock()
	u.lastChecked = &now
	u.mu.Unlock()

	if !found {
		u.setError(errors.New("repository not found or has no releases"))
		return nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	// dev builds are always considered outdated
	if current != "dev" && !release.GreaterThan(current) {
		u.transitionTo(StateIdle)
		return &UpdateInfo{
			CurrentVersion: current,
			LatestVersion:  release.Version(),
		}, nil
	}

	u.mu.Lock()
	u.latestRelease = release
	u.mu.Unlock()
	u.transitionTo(StateAvailable)

	return &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: true,
	}, nil
}

// Apply backs up the running binary and replaces it with the latest
// release. The caller is responsible for restarting the service.
func (u *Updater) Apply(ctx context.Context) (*UpdateInfo, error) {
	if !u.enabled {
		return nil, newError(ErrCodeDisabled, u.disabledReason, nil)
	}

	info, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "no update available", nil)
	}

	if !u.transitionTo(StateApplying, StateAvailable) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot apply update in state %s", u.getState()), nil)
	}

	if u.backups != nil {
		if err := u.backups.createBackup(u.execPath); err != nil {
			u.setError(err)
			return nil, newError(ErrCodeBackupFailed, "failed to create backup", err)
		}
	}

	u.mu.RLock()
	release := u.latestRelease
	u.mu.RUnlock()

	if err := u.updater.UpdateTo(ctx, release, u.execPath); err != nil {
		u.setError(err)
		u.attemptRollback()
		return nil, newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	u.transitionTo(StateApplied)
	u.logger.Info("Update applied", "from", info.CurrentVersion, "to", release.Version())
	return info, nil
}

// Rollback restores the previously backed up binary.
func (u *Updater) Rollback(_ context.Context) error {
	if !u.enabled {
		return newError(ErrCodeDisabled, u.disabledReason, nil)
	}

	if u.backups == nil || !u.backups.hasBackup() {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}

	if err := u.backups.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}

	u.transitionTo(StateRolledBack)
	u.logger.Info("Rollback completed", "version", u.backups.backupVersion())
	return nil
}

// Status returns the current update state including backup availability.
func (u *Updater) Status() *Status {
	u.mu.RLock()
	defer u.mu.RUnlock()

	status := &Status{
		State:          u.state,
		CurrentVersion: version.Version,
		LastChecked:    u.lastChecked,
	}

	if u.latestRelease != nil {
		status.TargetVersion = u.latestRelease.Version()
	}

	if u.lastError != nil {
		status.Error = u.lastError.Error()
	}

	if u.backups != nil {
		status.BackupAvailable = u.backups.hasBackup()
		status.BackupVersion = u.backups.backupVersion()
	}

	return status
}

func (u *Updater) transitionTo(newState State, validFromStates ...State) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(validFromStates) > 0 && !slices.Contains(validFromStates, u.state) {
		return false
	}

	u.logger.Debug("State transition", "from", u.state, "to", newState)
	u.state = newState
	u.lastError = nil
	return true
}

func (u *Updater) getState() State {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state
}

func (u *Updater) setError(err error) {
	u.mu.Lock()
	u.lastError = err
	u.state = StateError
	u.mu.Unlock()
}

func (u *Updater) attemptRollback() {
	if u.backups == nil || !u.backups.hasBackup() {
		u.logger.Error("No backup available for automatic rollback")
		return
	}

	if err := u.backups.restore(); err != nil {
		u.logger.Error("Failed to restore backup", "error", err)
		return
	}

	u.transitionTo(StateRolledBack)
	u.logger.Info("Automatic rollback completed")
}
