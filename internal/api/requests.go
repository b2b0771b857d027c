package api

import (
	"errors"
	"strings"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/record"
	"example.com/intensity/internal/stats"
)

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CreateRecordRequest is the payload for POST /api/records.
type CreateRecordRequest struct {
	UserID       string           `json:"user_id"`
	Date         record.Date      `json:"date"`
	TimeOfDay    record.TimeOfDay `json:"time_of_day"`
	Intensity    *int             `json:"intensity"`
	ExerciseType string           `json:"exercise_type"`
	Memo         string           `json:"memo"`
}

// Validate ensures request completeness; value ranges are checked by the domain.
func (r CreateRecordRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if r.Intensity == nil {
		return errors.New("intensity is required")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	return nil
}

// UpdateRecordRequest is the partial payload for PUT /api/records/{id}.
type UpdateRecordRequest struct {
	Date         *record.Date      `json:"date"`
	TimeOfDay    *record.TimeOfDay `json:"time_of_day"`
	Intensity    *int              `json:"intensity"`
	ExerciseType *string           `json:"exercise_type"`
	Memo         *string           `json:"memo"`
}

// FriendRequest is the payload for POST /api/friends/request.
type FriendRequest struct {
	UserID         string `json:"user_id"`
	FriendUsername string `json:"friend_username"`
}

// AcceptFriendRequest is the payload for POST /api/friends/accept.
type AcceptFriendRequest struct {
	FriendshipID string `json:"friendship_id"`
}

// RemoveFriendRequest is the payload for DELETE /api/friends.
type RemoveFriendRequest struct {
	UserID   string `json:"user_id"`
	FriendID string `json:"friend_id"`
}

// ListRecordsResponse packages a page of records.
type ListRecordsResponse struct {
	Records    []domain.BandedRecord `json:"records"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// FriendsResponse lists accepted friends.
type FriendsResponse struct {
	Friends    []domain.Friend `json:"friends"`
	TotalCount int             `json:"total_count"`
}

// LeaderboardResponse lists ranked standings.
type LeaderboardResponse struct {
	Leaderboard       []stats.Standing `json:"leaderboard"`
	TotalParticipants int              `json:"total_participants"`
}
