package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "mimicbot/pkg/logx"
)

// fileStore keeps the schedule in one flat JSON document.
//
// Saves write the whole document through a temp file + rename, so a crash
// mid-write leaves either the old or the new document, never a torn one.
// A torn or unparsable document is not fatal either way: Load degrades to an
// empty schedule.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) Load(ctx context.Context) Schedule {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *fileStore) loadLocked() Schedule {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("schedule load failed; starting empty", logx.String("path", s.path), logx.Err(err))
		}
		return Schedule{}
	}
	var m Schedule
	if err := json.Unmarshal(b, &m); err != nil {
		s.log.Warn("schedule document corrupt; starting empty", logx.String("path", s.path), logx.Err(err))
		return Schedule{}
	}
	if m == nil {
		m = Schedule{}
	}
	return m
}

func (s *fileStore) Save(ctx context.Context, sched Schedule) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(sched)
}

func (s *fileStore) saveLocked(sched Schedule) error {
	if s.closed {
		return ErrClosed
	}
	if sched == nil {
		sched = Schedule{}
	}
	b, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) SetNext(ctx context.Context, groupID string, nextRun float64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	sched := s.loadLocked()
	sched[groupID] = nextRun
	return s.saveLocked(sched)
}
