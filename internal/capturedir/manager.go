package capturedir

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"stopmo/internal/logging"
	"stopmo/internal/services"
)

// Manager tracks the active capture directory for one session.
type Manager struct {
	mu      sync.Mutex
	pickers []Picker
	access  AccessFunc
	logger  *slog.Logger
	current *Directory
	retired []*Directory
}

// Option configures a Manager.
type Option func(*Manager)

// WithAccessCheck overrides the read/write validation.
func WithAccessCheck(fn AccessFunc) Option {
	return func(m *Manager) {
		if fn != nil {
			m.access = fn
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.NewComponentLogger(logger, "capturedir")
	}
}

// NewManager builds a manager that consults pickers in order until one yields
// a usable directory. With no pickers every Ensure fails with
// ErrDirectoryUnavailable.
func NewManager(pickers []Picker, opts ...Option) *Manager {
	m := &Manager{access: CheckReadWrite, logger: logging.NewComponentLogger(nil, "capturedir")}
	for _, p := range pickers {
		if p != nil {
			m.pickers = append(m.pickers, p)
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Available reports whether a picker exists at all.
func (m *Manager) Available() bool {
	return m != nil && len(m.pickers) > 0
}

// Current returns the active directory, if any.
func (m *Manager) Current() *Directory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Ensure returns the active directory after re-validating access, or asks the
// pickers for a new one.
func (m *Manager) Ensure(ctx context.Context) (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		err := m.current.Check()
		if err == nil {
			return m.current, nil
		}
		logging.WarnWithContext(m.logger, "capture folder lost access; choosing again", "capture_dir_revoked",
			logging.String("path", m.current.Path()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next frame needs a new folder"),
			logging.String(logging.FieldErrorHint, "check folder permissions or pick another folder"),
		)
		m.retire()
	}
	return m.selectLocked(ctx)
}

// Reselect replaces the active directory with a freshly picked one. On failure
// the previous directory stays active.
func (m *Manager) Reselect(ctx context.Context) (*Directory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.current
	m.retire()
	dir, err := m.selectLocked(ctx)
	if err != nil {
		if previous != nil {
			m.current = m.takeRetired(previous.Path())
		}
		return nil, err
	}
	return dir, nil
}

func (m *Manager) selectLocked(ctx context.Context) (*Directory, error) {
	if len(m.pickers) == 0 {
		return nil, services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "select", "no folder picker available", nil)
	}
	var lastErr error
	for _, picker := range m.pickers {
		path, err := picker.Pick(ctx)
		if err != nil {
			if errors.Is(err, services.ErrSelectionAborted) {
				return nil, err
			}
			lastErr = err
			continue
		}
		dir := m.takeRetired(path)
		if dir != nil {
			if err := dir.Check(); err != nil {
				m.retired = append(m.retired, dir)
				lastErr = err
				continue
			}
		} else if dir, err = Open(path, m.access); err != nil {
			m.logger.Debug("capture folder rejected", logging.String("path", path), logging.Error(err))
			lastErr = err
			continue
		}
		m.current = dir
		m.logger.Info("capture folder ready",
			logging.String("path", dir.Path()),
			logging.String(logging.FieldEventType, "capture_dir_ready"),
		)
		return dir, nil
	}
	return nil, lastErr
}

// retire keeps the old directory open so frames already written there stay
// readable for export.
func (m *Manager) retire() {
	if m.current == nil {
		return
	}
	m.retired = append(m.retired, m.current)
	m.current = nil
}

// takeRetired removes and returns a retired directory for path. The lock is
// per open file, so re-picking a folder must reuse its existing handle.
func (m *Manager) takeRetired(path string) *Directory {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	for i, dir := range m.retired {
		if dir.Path() == abs {
			m.retired = append(m.retired[:i], m.retired[i+1:]...)
			return dir
		}
	}
	return nil
}

// Close releases every directory this manager opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, dir := range m.retired {
		errs = append(errs, dir.Close())
	}
	m.retired = nil
	if m.current != nil {
		errs = append(errs, m.current.Close())
		m.current = nil
	}
	return errors.Join(errs...)
}
