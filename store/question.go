package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/askcn/ask/model"
)

// questionColumns selects the columns of a `questionRow`.
const questionColumns = `q.id, q.title, q.text, q.added_at, q.rating,
	q.author_id, u.username AS author_name,
	(SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id)
		AS answer_count
	FROM questions q
	JOIN users u ON u.id = q.author_id`

// questionRow is a row of the questions table joined with its author and its
// answer count.
type questionRow struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Text        string `db:"text"`
	AddedAt     int64  `db:"added_at"`
	Rating      int64  `db:"rating"`
	AuthorID    int64  `db:"author_id"`
	AuthorName  string `db:"author_name"`
	AnswerCount int64  `db:"answer_count"`
}

// model returns the qr as a `model.Question`.
func (qr *questionRow) model() *model.Question {
	return &model.Question{
		ID:          qr.ID,
		Title:       qr.Title,
		Text:        qr.Text,
		AddedAt:     fromMillis(qr.AddedAt),
		Rating:      qr.Rating,
		AuthorID:    qr.AuthorID,
		AuthorName:  qr.AuthorName,
		AnswerCount: qr.AnswerCount,
	}
}

// questionModels returns the qrs as `model.Question`s.
func questionModels(qrs []questionRow) []*model.Question {
	qs := make([]*model.Question, 0, len(qrs))
	for i := range qrs {
		qs = append(qs, qrs[i].model())
	}

	return qs
}

// orderClause returns the ORDER BY clause of the o.
func orderClause(o model.Order) string {
	switch o {
	case model.OrderPopular:
		return ` ORDER BY q.rating DESC, q.added_at DESC, q.id DESC`
	}

	return ` ORDER BY q.added_at DESC, q.id DESC`
}

// CreateQuestion inserts the q and returns it with its ID set. Its rating
// always starts at zero.
func (s *Store) CreateQuestion(
	ctx context.Context,
	q model.Question,
) (*model.Question, error) {
	q.AddedAt = nowIfZero(q.AddedAt)
	q.Rating = 0
	q.AnswerCount = 0
	if err := s.db.QueryRowxContext(
		ctx,
		s.rebind(`INSERT INTO questions
			(title, text, added_at, rating, author_id)
			VALUES (?, ?, ?, 0, ?)
			RETURNING id`),
		q.Title,
		q.Text,
		toMillis(q.AddedAt),
		q.AuthorID,
	).Scan(&q.ID); err != nil {
		return nil, err
	}

	return &q, nil
}

// Question returns the question identified by the id.
func (s *Store) Question(ctx context.Context, id int64) (*model.Question, error) {
	qr := questionRow{}
	if err := s.db.GetContext(
		ctx,
		&qr,
		s.rebind(`SELECT `+questionColumns+` WHERE q.id = ?`),
		id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return qr.model(), nil
}

// Questions returns at most limit questions in the order o, skipping the
// first offset ones.
func (s *Store) Questions(
	ctx context.Context,
	o model.Order,
	limit int,
	offset int,
) ([]*model.Question, error) {
	qrs := []questionRow{}
	if err := s.db.SelectContext(
		ctx,
		&qrs,
		s.rebind(`SELECT `+questionColumns+orderClause(o)+
			` LIMIT ? OFFSET ?`),
		limit,
		offset,
	); err != nil {
		return nil, err
	}

	return questionModels(qrs), nil
}

// CountQuestions returns the number of questions.
func (s *Store) CountQuestions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM questions`)
	return n, err
}

// searchPattern returns the LIKE pattern matching the query as a
// case-insensitive substring.
func searchPattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(query)) + "%"
}

// searchCondition returns the WHERE clause of a search.
func (s *Store) searchCondition() string {
	lower := "LOWER"
	if s.driver == DriverSQLite {
		lower = "ulower"
	}

	return ` WHERE ` + lower + `(q.title) LIKE ? ESCAPE '\'
	OR ` + lower + `(q.text) LIKE ? ESCAPE '\'`
}

// SearchQuestions returns at most limit questions whose title or text contains
// the query, newest first, skipping the first offset ones.
func (s *Store) SearchQuestions(
	ctx context.Context,
	query string,
	limit int,
	offset int,
) ([]*model.Question, error) {
	p := searchPattern(query)
	qrs := []questionRow{}
	if err := s.db.SelectContext(
		ctx,
		&qrs,
		s.rebind(`SELECT `+questionColumns+s.searchCondition()+
			orderClause(model.OrderNew)+` LIMIT ? OFFSET ?`),
		p,
		p,
		limit,
		offset,
	); err != nil {
		return nil, err
	}

	return questionModels(qrs), nil
}

// CountSearch returns the number of questions whose title or text contains the
// query.
func (s *Store) CountSearch(ctx context.Context, query string) (int64, error) {
	p := searchPattern(query)
	var n int64
	err := s.db.GetContext(
		ctx,
		&n,
		s.rebind(`SELECT COUNT(*) FROM questions q`+s.searchCondition()),
		p,
		p,
	)
	return n, err
}

// LikeQuestion records that the user identified by the userID likes the
// question identified by the questionID. It reports whether the like is new.
// The rating of the question is kept equal to its number of likes.
func (s *Store) LikeQuestion(
	ctx context.Context,
	questionID int64,
	userID int64,
	now time.Time,
) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(
		ctx,
		&exists,
		tx.Rebind(`SELECT COUNT(*) FROM questions WHERE id = ?`),
		questionID,
	); err != nil {
		return false, err
	} else if exists == 0 {
		return false, ErrNotFound
	}

	r, err := tx.ExecContext(
		ctx,
		tx.Rebind(`INSERT INTO question_likes
			(question_id, user_id, added_at)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING`),
		questionID,
		userID,
		toMillis(nowIfZero(now)),
	)
	if err != nil {
		return false, err
	}

	n, err := r.RowsAffected()
	if err != nil {
		return false, err
	} else if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(
		ctx,
		tx.Rebind(`UPDATE questions SET rating = rating + 1
			WHERE id = ?`),
		questionID,
	); err != nil {
		return false, err
	}

	return true, tx.Commit()
}
