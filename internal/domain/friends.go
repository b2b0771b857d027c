package domain

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"example.com/intensity/internal/stats"
)

// leaderboardConcurrency bounds the number of participants loaded at once.
const leaderboardConcurrency = 8

// RequestFriendship creates a pending friendship from userID to the user named friendUsername.
func (s *Service) RequestFriendship(ctx context.Context, userID, friendUsername string) (*Friendship, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	friend, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(friendUsername))
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, ErrUserNotFound
	}
	if friend.ID == user.ID {
		return nil, ErrSelfFriendship
	}

	existing, err := s.repo.FindFriendship(ctx, user.ID, friend.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrFriendshipExists
	}

	now := s.now().UTC()
	friendship := Friendship{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		FriendID:  friend.ID,
		Status:    FriendshipPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateFriendship(ctx, friendship); err != nil {
		return nil, err
	}
	return &friendship, nil
}

// AcceptFriendship moves a pending friendship to accepted.
func (s *Service) AcceptFriendship(ctx context.Context, id string) (*Friendship, error) {
	friendship, err := s.repo.GetFriendship(ctx, id)
	if err != nil {
		return nil, err
	}
	if friendship == nil {
		return nil, ErrFriendshipNotFound
	}
	if friendship.Status != FriendshipPending {
		return nil, ErrNotPending
	}

	friendship.Status = FriendshipAccepted
	friendship.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateFriendship(ctx, *friendship); err != nil {
		return nil, err
	}
	return friendship, nil
}

// RemoveFriendship deletes the relation between two users regardless of direction.
func (s *Service) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	friendship, err := s.repo.FindFriendship(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if friendship == nil {
		return ErrFriendshipNotFound
	}
	return s.repo.DeleteFriendship(ctx, friendship.ID)
}

// Friends lists a user's accepted friends with their weekly scores.
func (s *Service) Friends(ctx context.Context, userID string) ([]Friend, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	friendships, err := s.repo.ListFriendships(ctx, userID, FriendshipAccepted)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.Other(userID))
	}
	participants, err := s.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}

	friends := make([]Friend, 0, len(participants))
	for i, p := range participants {
		if p.user == nil {
			continue
		}
		friends = append(friends, Friend{
			ID:              p.user.ID,
			Username:        p.user.Username,
			Email:           p.user.Email,
			WeeklyScore:     p.score,
			FriendshipSince: friendships[i].CreatedAt,
		})
	}
	return friends, nil
}

// Leaderboard ranks a user and their accepted friends by weekly score. Equal scores keep the
// user first, then friends in friendship order.
func (s *Service) Leaderboard(ctx context.Context, userID string) ([]stats.Standing, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	friendships, err := s.repo.ListFriendships(ctx, userID, FriendshipAccepted)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(friendships)+1)
	ids = append(ids, userID)
	for _, f := range friendships {
		ids = append(ids, f.Other(userID))
	}
	participants, err := s.loadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}

	standings := make([]stats.Standing, 0, len(participants))
	for _, p := range participants {
		if p.user == nil {
			continue
		}
		standings = append(standings, stats.Standing{
			UserID:   p.user.ID,
			Username: p.user.Username,
			Score:    p.score,
			IsUser:   p.user.ID == userID,
		})
	}
	return stats.Rank(standings), nil
}

type participant struct {
	user  *User
	score int
}

// loadParticipants fetches each user and their weekly score concurrently. Results keep the order
// of ids; unknown users yield a nil user.
func (s *Service) loadParticipants(ctx context.Context, ids []string) ([]participant, error) {
	now := s.now()
	since := now.AddDate(0, 0, -7)
	out := make([]participant, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(leaderboardConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			user, err := s.repo.GetUser(gctx, id)
			if err != nil || user == nil {
				return err
			}
			records, err := s.allRecords(gctx, RecordQuery{UserID: id, CreatedSince: since})
			if err != nil {
				return err
			}
			out[i] = participant{user: user, score: stats.WeeklyScore(records, now)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
