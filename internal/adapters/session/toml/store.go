// Package toml persists one session file per account under a sessions
// directory. Writes go through a temp file plus rename so a crashed run never
// leaves a half-written record.
package toml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/lmoreno/railguard/internal/domain"
	"github.com/lmoreno/railguard/internal/ports"
)

const (
	sessionFileMode = 0o600
	sessionDirMode  = 0o700
	tempFilePattern = ".session-*.toml.tmp"
)

type Store struct {
	dir   string
	clock ports.Clock
	log   *slog.Logger
	mu    *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	dirLockMap     = map[string]*sync.RWMutex{}
)

var _ ports.SessionStore = (*Store)(nil)

func NewStore(dir string, clock ports.Clock, log *slog.Logger) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	dir = filepath.Clean(dir)
	return &Store{dir: dir, clock: clock, log: log, mu: lockForDir(dir)}
}

// Load returns the stored session for the account. Missing, malformed, and
// stale records all surface as domain.ErrSessionAbsent; stale records are
// removed on the way out.
func (s *Store) Load(ctx context.Context, account domain.AccountName) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	path, err := s.pathFor(account)
	if err != nil {
		return domain.Session{}, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, domain.ErrSessionAbsent
		}
		return domain.Session{}, fmt.Errorf("read session file for %s: %w", account, err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		s.log.Warn("session file is malformed, treating as absent", "account", account, "err", err)
		return domain.Session{}, domain.ErrSessionAbsent
	}

	session, err := fromSchema(file)
	if err != nil {
		s.log.Warn("session file is malformed, treating as absent", "account", account, "err", err)
		return domain.Session{}, domain.ErrSessionAbsent
	}

	if !session.Fresh(s.clock.Now()) {
		s.log.Info("stored session is stale, removing", "account", account, "last_authenticated", session.LastAuthenticated)
		if err := s.Clear(ctx, account); err != nil {
			s.log.Warn("removing stale session file", "account", account, "err", err)
		}
		return domain.Session{}, domain.ErrSessionAbsent
	}

	return session, nil
}

// Save overwrites the account's session record. Idempotent.
func (s *Store) Save(ctx context.Context, account domain.AccountName, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(account)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(toSchema(session))
	if err != nil {
		return fmt.Errorf("encode session for %s: %w", account, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tempFile, err := os.CreateTemp(s.dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replace session file for %s: %w", account, err)
	}

	return nil
}

// Clear removes the account's session record. Removing a record that does
// not exist is not an error.
func (s *Store) Clear(ctx context.Context, account domain.AccountName) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file for %s: %w", account, err)
	}
	return nil
}

func (s *Store) pathFor(account domain.AccountName) (string, error) {
	name := strings.TrimSpace(string(account))
	if name == "" {
		return "", errors.New("account name is empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", fmt.Errorf("invalid account name %q", account)
	}
	return filepath.Join(s.dir, name+".toml"), nil
}

func lockForDir(dir string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := dirLockMap[dir]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	dirLockMap[dir] = mu
	return mu
}
