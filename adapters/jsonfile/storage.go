package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"progresskit/core"
)

// Store persists all learner aggregates and the transaction log to a single
// JSON file. Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data fileData
}

type fileData struct {
	Learners     map[core.LearnerID]*core.Progress `json:"learners"`
	Transactions []core.Transaction                `json:"transactions,omitempty"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: fileData{Learners: map[core.LearnerID]*core.Progress{}}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw fileData
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Learners == nil {
		raw.Learners = map[core.LearnerID]*core.Progress{}
	}
	s.data = raw
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) LoadProgress(_ context.Context, learner core.LearnerID) (*core.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data.Learners[learner]; ok {
		return p.Clone(), nil
	}
	return core.NewProgress(learner), nil
}

func (s *Store) SaveProgress(_ context.Context, p *core.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Learners[p.Learner] = p.Clone()
	return s.persist()
}

func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Transactions = append(s.data.Transactions, tx)
	return s.persist()
}
