package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/askcn/ask/model"
)

// userRow is a row of the users table.
type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	JoinedAt     int64  `db:"joined_at"`
}

// model returns the ur as a `model.User`.
func (ur *userRow) model() *model.User {
	return &model.User{
		ID:           ur.ID,
		Username:     ur.Username,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash,
		JoinedAt:     fromMillis(ur.JoinedAt),
	}
}

// CreateUser inserts the u and returns it with its ID set. It returns the
// `ErrConflict` if the username of the u is taken.
func (s *Store) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	u.JoinedAt = nowIfZero(u.JoinedAt)
	if err := s.db.QueryRowxContext(
		ctx,
		s.rebind(`INSERT INTO users (username, email, password_hash, joined_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`),
		u.Username,
		u.Email,
		u.PasswordHash,
		toMillis(u.JoinedAt),
	).Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}

		return nil, err
	}

	return &u, nil
}

// UserByID returns the user identified by the id.
func (s *Store) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.user(ctx, `SELECT * FROM users WHERE id = ?`, id)
}

// UserByUsername returns the user named by the username.
func (s *Store) UserByUsername(
	ctx context.Context,
	username string,
) (*model.User, error) {
	return s.user(ctx, `SELECT * FROM users WHERE username = ?`, username)
}

// user returns the user selected by the query.
func (s *Store) user(
	ctx context.Context,
	query string,
	args ...any,
) (*model.User, error) {
	ur := userRow{}
	if err := s.db.GetContext(ctx, &ur, s.rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return ur.model(), nil
}

// CreateSession inserts the ss.
func (s *Store) CreateSession(ctx context.Context, ss model.Session) error {
	_, err := s.db.ExecContext(
		ctx,
		s.rebind(`INSERT INTO sessions (token, user_id, expires_at)
			VALUES (?, ?, ?)`),
		ss.Token,
		ss.UserID,
		toMillis(ss.ExpiresAt),
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}

	return err
}

// SessionUser returns the user of the session identified by the token. It
// returns the `ErrNotFound` if the session does not exist or has expired at
// the now.
func (s *Store) SessionUser(
	ctx context.Context,
	token string,
	now time.Time,
) (*model.User, error) {
	return s.user(
		ctx,
		`SELECT u.* FROM sessions s
			JOIN users u ON u.id = s.user_id
			WHERE s.token = ? AND s.expires_at > ?`,
		token,
		toMillis(now),
	)
}

// DeleteSession deletes the session identified by the token.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(
		ctx,
		s.rebind(`DELETE FROM sessions WHERE token = ?`),
		token,
	)
	return err
}

// PurgeExpiredSessions deletes the sessions that have expired at the now and
// returns how many were deleted.
func (s *Store) PurgeExpiredSessions(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	r, err := s.db.ExecContext(
		ctx,
		s.rebind(`DELETE FROM sessions WHERE expires_at <= ?`),
		toMillis(now),
	)
	if err != nil {
		return 0, err
	}

	return r.RowsAffected()
}
