package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/askcn/ask/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore opens a store backed by a SQLite database in a temporary
// directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "ask.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

// createTestUser creates a user named by the username.
func createTestUser(t *testing.T, s *Store, username string) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	return u
}

// createTestQuestion creates a question with the title asked at the addedAt.
func createTestQuestion(
	t *testing.T,
	s *Store,
	author *model.User,
	title string,
	addedAt time.Time,
) *model.Question {
	t.Helper()

	q, err := s.CreateQuestion(context.Background(), model.Question{
		Title:    title,
		Text:     "text of " + title,
		AddedAt:  addedAt,
		AuthorID: author.ID,
	})
	require.NoError(t, err)

	return q
}

func TestOpenValidatesArguments(t *testing.T) {
	_, err := Open(DriverSQLite, "")
	assert.Error(t, err)

	_, err = Open("mysql", "ask.db")
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ask.db")

	s, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	createTestUser(t, s, "gopher")
	require.NoError(t, s.Close())

	s, err = Open(DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	u, err := s.UserByUsername(context.Background(), "gopher")
	require.NoError(t, err)
	assert.Equal(t, "gopher@example.com", u.Email)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	u := createTestUser(t, s, "gopher")
	assert.NotZero(t, u.ID)
	assert.False(t, u.JoinedAt.IsZero())

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, u.JoinedAt, got.JoinedAt)

	_, err = s.CreateUser(ctx, model.User{
		Username:     "gopher",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UserByID(ctx, u.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateSession(ctx, model.Session{
		Token:     "live",
		UserID:    u.ID,
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, s.CreateSession(ctx, model.Session{
		Token:     "stale",
		UserID:    u.ID,
		ExpiresAt: now.Add(-time.Hour),
	}))
	assert.ErrorIs(t, s.CreateSession(ctx, model.Session{
		Token:     "live",
		UserID:    u.ID,
		ExpiresAt: now,
	}), ErrConflict)

	got, err := s.SessionUser(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.SessionUser(ctx, "stale", now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SessionUser(ctx, "live", now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound, "expiry is exclusive")

	n, err := s.PurgeExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.DeleteSession(ctx, "live"))
	_, err = s.SessionUser(ctx, "live", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionOrders(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	v := createTestUser(t, s, "rustacean")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	old := createTestQuestion(t, s, u, "old", base)
	mid := createTestQuestion(t, s, u, "mid", base.Add(time.Hour))
	newest := createTestQuestion(t, s, u, "new", base.Add(2*time.Hour))

	_, err := s.LikeQuestion(ctx, old.ID, u.ID, base)
	require.NoError(t, err)
	_, err = s.LikeQuestion(ctx, old.ID, v.ID, base)
	require.NoError(t, err)
	_, err = s.LikeQuestion(ctx, mid.ID, u.ID, base)
	require.NoError(t, err)

	titles := func(qs []*model.Question) []string {
		ts := []string{}
		for _, q := range qs {
			ts = append(ts, q.Title)
		}

		return ts
	}

	qs, err := s.Questions(ctx, model.OrderDefault, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, titles(qs))
	assert.Equal(t, "gopher", qs[0].AuthorName)

	qs, err = s.Questions(ctx, model.OrderNew, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "old"}, titles(qs))

	qs, err = s.Questions(ctx, model.OrderPopular, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "mid", "new"}, titles(qs))
	assert.EqualValues(t, 2, qs[0].Rating)

	n, err := s.CountQuestions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := s.Question(ctx, newest.ID)
	require.NoError(t, err)
	assert.Equal(t, "text of new", got.Text)
	assert.Equal(t, base.Add(2*time.Hour), got.AddedAt)

	_, err = s.Question(ctx, newest.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikeQuestion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	q := createTestQuestion(t, s, u, "likeable", time.Time{})

	liked, err := s.LikeQuestion(ctx, q.ID, u.ID, time.Time{})
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = s.LikeQuestion(ctx, q.ID, u.ID, time.Time{})
	require.NoError(t, err)
	assert.False(t, liked, "a user likes a question at most once")

	got, err := s.Question(ctx, q.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Rating)

	_, err = s.LikeQuestion(ctx, q.ID+100, u.ID, time.Time{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikeQuestionConcurrently(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	s.SetMaxOpenConns(1)
	author := createTestUser(t, s, "author")
	q := createTestQuestion(t, s, author, "likeable", time.Time{})

	users := make([]*model.User, 8)
	for i := range users {
		users[i] = createTestUser(t, s, fmt.Sprintf("fan%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(users)*2)
	for _, u := range users {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(u *model.User) {
				defer wg.Done()
				_, err := s.LikeQuestion(ctx, q.ID, u.ID, time.Time{})
				errs <- err
			}(u)
		}
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.Question(ctx, q.ID)
	require.NoError(t, err)
	assert.EqualValues(t, len(users), got.Rating)
}

func TestAnswers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	q := createTestQuestion(t, s, u, "question", time.Time{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 2; i >= 1; i-- {
		_, err := s.CreateAnswer(ctx, model.Answer{
			Text:       fmt.Sprint("answer ", i),
			AddedAt:    base.Add(time.Duration(i) * time.Minute),
			QuestionID: q.ID,
			AuthorID:   u.ID,
		})
		require.NoError(t, err)
	}

	as, err := s.Answers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, as, 2)
	assert.Equal(t, "answer 1", as[0].Text)
	assert.Equal(t, "answer 2", as[1].Text)
	assert.Equal(t, "gopher", as[0].AuthorName)

	got, err := s.Question(ctx, q.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.AnswerCount)

	_, err = s.CreateAnswer(ctx, model.Answer{
		Text:       "orphan",
		QuestionID: q.ID + 100,
		AuthorID:   u.ID,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchQuestions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	createTestQuestion(t, s, u, "How do Goroutines work?", base)
	createTestQuestion(t, s, u, "What is a channel?", base.Add(time.Hour))
	createTestQuestion(t, s, u, "100% coverage", base.Add(2*time.Hour))

	qs, err := s.SearchQuestions(ctx, "GOROUTINE", 10, 0)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "How do Goroutines work?", qs[0].Title)

	n, err := s.CountSearch(ctx, "text of")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n, "text is searched too")

	qs, err = s.SearchQuestions(ctx, "text of", 1, 0)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "100% coverage", qs[0].Title)

	n, err = s.CountSearch(ctx, "%")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "wildcards are matched literally")

	n, err = s.CountSearch(ctx, "nothing like this")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchQuestionsUnicode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	createTestQuestion(t, s, u, "Привет Мир", time.Time{})
	createTestQuestion(t, s, u, "Hello world", time.Time{})

	for _, query := range []string{"привет", "Привет", "МИР", "привет мир"} {
		n, err := s.CountSearch(ctx, query)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, query)

		qs, err := s.SearchQuestions(ctx, query, 10, 0)
		require.NoError(t, err)
		require.Len(t, qs, 1, query)
		assert.Equal(t, "Привет Мир", qs[0].Title)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	u := createTestUser(t, s, "gopher")
	q := createTestQuestion(t, s, u, "question", time.Time{})
	_, err := s.CreateAnswer(ctx, model.Answer{
		Text:       "answer",
		QuestionID: q.ID,
		AuthorID:   u.ID,
	})
	require.NoError(t, err)
	_, err = s.LikeQuestion(ctx, q.ID, u.ID, time.Time{})
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats, err := s.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, &model.Stats{
		UserCount:     1,
		QuestionCount: 1,
		AnswerCount:   1,
		LikeCount:     1,
		UpdatedAt:     now,
	}, stats)
}

func TestStoreReportsDatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, "sqlmock")
	boom := errors.New("boom")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)
	_, err = s.CountQuestions(context.Background())
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT").WillReturnError(boom)
	_, err = s.Stats(context.Background(), time.Time{})
	assert.ErrorIs(t, err, boom)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO question_likes").WillReturnError(boom)
	mock.ExpectRollback()
	_, err = s.LikeQuestion(context.Background(), 1, 1, time.Time{})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
