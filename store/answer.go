package store

import (
	"context"

	"github.com/askcn/ask/model"
)

// answerRow is a row of the answers table joined with its author.
type answerRow struct {
	ID         int64  `db:"id"`
	Text       string `db:"text"`
	AddedAt    int64  `db:"added_at"`
	QuestionID int64  `db:"question_id"`
	AuthorID   int64  `db:"author_id"`
	AuthorName string `db:"author_name"`
}

// CreateAnswer inserts the a and returns it with its ID set. It returns the
// `ErrNotFound` if the question of the a does not exist.
func (s *Store) CreateAnswer(
	ctx context.Context,
	a model.Answer,
) (*model.Answer, error) {
	a.AddedAt = nowIfZero(a.AddedAt)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(
		ctx,
		&exists,
		tx.Rebind(`SELECT COUNT(*) FROM questions WHERE id = ?`),
		a.QuestionID,
	); err != nil {
		return nil, err
	} else if exists == 0 {
		return nil, ErrNotFound
	}

	if err := tx.QueryRowxContext(
		ctx,
		tx.Rebind(`INSERT INTO answers
			(text, added_at, question_id, author_id)
			VALUES (?, ?, ?, ?)
			RETURNING id`),
		a.Text,
		toMillis(a.AddedAt),
		a.QuestionID,
		a.AuthorID,
	).Scan(&a.ID); err != nil {
		return nil, err
	}

	return &a, tx.Commit()
}

// Answers returns the answers to the question identified by the questionID,
// oldest first.
func (s *Store) Answers(
	ctx context.Context,
	questionID int64,
) ([]*model.Answer, error) {
	ars := []answerRow{}
	if err := s.db.SelectContext(
		ctx,
		&ars,
		s.rebind(`SELECT a.id, a.text, a.added_at, a.question_id,
				a.author_id, u.username AS author_name
			FROM answers a
			JOIN users u ON u.id = a.author_id
			WHERE a.question_id = ?
			ORDER BY a.added_at, a.id`),
		questionID,
	); err != nil {
		return nil, err
	}

	as := make([]*model.Answer, 0, len(ars))
	for _, ar := range ars {
		as = append(as, &model.Answer{
			ID:         ar.ID,
			Text:       ar.Text,
			AddedAt:    fromMillis(ar.AddedAt),
			QuestionID: ar.QuestionID,
			AuthorID:   ar.AuthorID,
			AuthorName: ar.AuthorName,
		})
	}

	return as, nil
}
