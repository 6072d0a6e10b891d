package store

import (
	"context"
	"time"

	"github.com/askcn/ask/model"
)

// Stats returns a snapshot of the site statistics taken at the now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*model.Stats, error) {
	stats := &model.Stats{}
	if err := s.db.GetContext(ctx, stats, `SELECT
		(SELECT COUNT(*) FROM users) AS user_count,
		(SELECT COUNT(*) FROM questions) AS question_count,
		(SELECT COUNT(*) FROM answers) AS answer_count,
		(SELECT COUNT(*) FROM question_likes) AS like_count`); err != nil {
		return nil, err
	}

	stats.UpdatedAt = nowIfZero(now)

	return stats, nil
}
