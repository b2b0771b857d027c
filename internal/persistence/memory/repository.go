// Package memory provides an in-process repository for local development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/persistence"
	"example.com/intensity/internal/record"
)

// Repository stores users, records and friendships in maps guarded by a single lock.
type Repository struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	records     map[string]record.Record
	friendships map[string]domain.Friendship
	order       []string
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		users:       make(map[string]domain.User),
		records:     make(map[string]record.Record),
		friendships: make(map[string]domain.Friendship),
	}
}

// CreateUser implements domain.UserRepository.
func (r *Repository) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	r.users[user.ID] = user
	return nil
}

// GetUser implements domain.UserRepository.
func (r *Repository) GetUser(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetUserByUsername implements domain.UserRepository.
func (r *Repository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

// CreateRecord implements domain.RecordRepository.
func (r *Repository) CreateRecord(_ context.Context, rec record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return nil
}

// GetRecord implements domain.RecordRepository.
func (r *Repository) GetRecord(_ context.Context, id string) (*record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// UpdateRecord implements domain.RecordRepository.
func (r *Repository) UpdateRecord(_ context.Context, rec record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return domain.ErrRecordNotFound
	}
	r.records[rec.ID] = rec
	return nil
}

// DeleteRecord implements domain.RecordRepository.
func (r *Repository) DeleteRecord(_ context.Context, rec record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.records, rec.ID)
	return nil
}

// ListRecords implements domain.RecordRepository.
func (r *Repository) ListRecords(_ context.Context, query domain.RecordQuery) ([]record.Record, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(query.ExerciseType))

	matches := make([]record.Record, 0)
	for _, rec := range r.records {
		if query.UserID != "" && rec.UserID != query.UserID {
			continue
		}
		if !query.StartDate.IsZero() && rec.Date.Before(query.StartDate) {
			continue
		}
		if !query.EndDate.IsZero() && rec.Date.After(query.EndDate) {
			continue
		}
		if needle != "" && !strings.Contains(folder.String(rec.ExerciseType), needle) {
			continue
		}
		if !query.CreatedSince.IsZero() && rec.CreatedAt.Before(query.CreatedSince) {
			continue
		}
		if !persistence.After(query.Cursor, rec.CreatedAt, rec.ID) {
			continue
		}
		matches = append(matches, rec)
	}

	slices.SortFunc(matches, func(a, b record.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if query.Limit <= 0 || len(matches) < query.Limit {
		return matches, nil, nil
	}
	matches = matches[:query.Limit]
	last := matches[len(matches)-1]
	return matches, &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// CreateFriendship implements domain.FriendshipRepository.
func (r *Repository) CreateFriendship(_ context.Context, friendship domain.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findLocked(friendship.UserID, friendship.FriendID) != nil {
		return domain.ErrFriendshipExists
	}
	r.friendships[friendship.ID] = friendship
	r.order = append(r.order, friendship.ID)
	return nil
}

// GetFriendship implements domain.FriendshipRepository.
func (r *Repository) GetFriendship(_ context.Context, id string) (*domain.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.friendships[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// FindFriendship implements domain.FriendshipRepository.
func (r *Repository) FindFriendship(_ context.Context, a, b string) (*domain.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(a, b), nil
}

func (r *Repository) findLocked(a, b string) *domain.Friendship {
	for _, f := range r.friendships {
		if (f.UserID == a && f.FriendID == b) || (f.UserID == b && f.FriendID == a) {
			return &f
		}
	}
	return nil
}

// UpdateFriendship implements domain.FriendshipRepository.
func (r *Repository) UpdateFriendship(_ context.Context, friendship domain.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.friendships[friendship.ID]; !ok {
		return domain.ErrFriendshipNotFound
	}
	r.friendships[friendship.ID] = friendship
	return nil
}

// DeleteFriendship implements domain.FriendshipRepository.
func (r *Repository) DeleteFriendship(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.friendships[id]; !ok {
		return domain.ErrFriendshipNotFound
	}
	delete(r.friendships, id)
	r.order = slices.DeleteFunc(r.order, func(candidate string) bool { return candidate == id })
	return nil
}

// ListFriendships implements domain.FriendshipRepository.
func (r *Repository) ListFriendships(_ context.Context, userID string, status domain.FriendshipStatus) ([]domain.Friendship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Friendship, 0)
	for _, id := range r.order {
		f := r.friendships[id]
		if f.Status != status {
			continue
		}
		if f.UserID == userID || f.FriendID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}
