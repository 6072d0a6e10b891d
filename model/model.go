package model

import "time"

// User is a registered user.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	JoinedAt     time.Time `db:"joined_at"`
}

// Question is a question asked by a user.
type Question struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Text        string    `db:"text"`
	AddedAt     time.Time `db:"added_at"`
	Rating      int64     `db:"rating"`
	AuthorID    int64     `db:"author_id"`
	AuthorName  string    `db:"author_name"`
	AnswerCount int64     `db:"answer_count"`
}

// Answer is an answer to a question.
type Answer struct {
	ID         int64     `db:"id"`
	Text       string    `db:"text"`
	AddedAt    time.Time `db:"added_at"`
	QuestionID int64     `db:"question_id"`
	AuthorID   int64     `db:"author_id"`
	AuthorName string    `db:"author_name"`
}

// Session binds a cookie token to a user until it expires.
type Session struct {
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Stats is a snapshot of the site statistics.
type Stats struct {
	UserCount     int64     `json:"user_count" db:"user_count"`
	QuestionCount int64     `json:"question_count" db:"question_count"`
	AnswerCount   int64     `json:"answer_count" db:"answer_count"`
	LikeCount     int64     `json:"like_count" db:"like_count"`
	UpdatedAt     time.Time `json:"updated_at" db:"-"`
}

// Order is the order in which questions are listed.
type Order int

// The question orders.
const (
	OrderDefault Order = iota
	OrderNew
	OrderPopular
)

// String implements the `fmt.Stringer`.
func (o Order) String() string {
	switch o {
	case OrderNew:
		return "new"
	case OrderPopular:
		return "popular"
	}

	return "default"
}
