package domain

import "errors"

var (
	// ErrRecordNotFound is returned when a record cannot be located.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates a user with the requested username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUser is returned when a user payload is incomplete.
	ErrInvalidUser = errors.New("invalid user")
	// ErrFriendshipNotFound is returned when no friendship links the requested users.
	ErrFriendshipNotFound = errors.New("friendship not found")
	// ErrFriendshipExists indicates a pending or accepted relation already links the two users.
	ErrFriendshipExists = errors.New("friendship already exists")
	// ErrSelfFriendship is returned when a user sends a friend request to themselves.
	ErrSelfFriendship = errors.New("cannot befriend yourself")
	// ErrNotPending is returned when accepting a friendship that is not pending.
	ErrNotPending = errors.New("friendship is not pending")
)
