package file

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"
)

// Store keeps subscriptions in one JSON document. Every write rewrites the
// document through a temp file and rename.
type Store struct {
	path string

	mu     sync.Mutex
	users  map[int64][]string
	loaded bool
}

func NewStore(path string) *Store {
	return &Store{
		path:  path,
		users: make(map[int64][]string),
	}
}

func (s *Store) Load(context.Context) (map[int64][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return cloneUsers(s.users), nil
}

func (s *Store) EnsureUser(_ context.Context, userID int64) error {
	return s.update(func(users map[int64][]string) bool {
		if _, ok := users[userID]; ok {
			return false
		}
		users[userID] = []string{}
		return true
	})
}

func (s *Store) Add(_ context.Context, userID int64, address string) error {
	return s.update(func(users map[int64][]string) bool {
		if lo.Contains(users[userID], address) {
			return false
		}
		users[userID] = append(users[userID], address)
		return true
	})
}

func (s *Store) Remove(_ context.Context, userID int64, address string) error {
	return s.update(func(users map[int64][]string) bool {
		cur, ok := users[userID]
		if !ok || !lo.Contains(cur, address) {
			return false
		}
		users[userID] = lo.Without(cur, address)
		return true
	})
}

// update applies fn to a copy and only adopts it once it is on disk.
func (s *Store) update(fn func(users map[int64][]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	next := cloneUsers(s.users)
	if !fn(next) {
		return nil
	}
	if err := s.saveLocked(next); err != nil {
		return err
	}
	s.users = next
	return nil
}

// ---- storage format ----

type document struct {
	UpdatedAt time.Time `json:"updated_at"`
	Users     []record  `json:"users"`
}

type record struct {
	UserID    int64    `json:"user_id"`
	Addresses []string `json:"addresses"`
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc document
	if err := sonic.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	s.users = make(map[int64][]string, len(doc.Users))
	for _, r := range doc.Users {
		s.users[r.UserID] = lo.Uniq(append(s.users[r.UserID], r.Addresses...))
	}
	s.loaded = true
	return nil
}

func (s *Store) saveLocked(users map[int64][]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	ids := slices.Sorted(maps.Keys(users))
	doc := document{
		UpdatedAt: time.Now().UTC(),
		Users: lo.Map(ids, func(id int64, _ int) record {
			addrs := slices.Clone(users[id])
			slices.Sort(addrs)
			return record{UserID: id, Addresses: addrs}
		}),
	}

	b, err := sonic.ConfigStd.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func cloneUsers(in map[int64][]string) map[int64][]string {
	out := make(map[int64][]string, len(in))
	for id, addrs := range in {
		out[id] = slices.Clone(addrs)
		if out[id] == nil {
			out[id] = []string{}
		}
	}
	return out
}
