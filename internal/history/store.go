package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a history entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// ErrInvalidScope is returned by Clear for an unknown scope.
var ErrInvalidScope = errors.New("invalid history type")

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Limits caps the entries kept per user. Zero fields use the defaults.
type Limits struct {
	Quizzes int
	Chats   int
	Topics  int
}

// Store provides database operations for per-user history.
type Store struct {
	db     *sql.DB
	limits Limits
	now    func() time.Time
}

// NewStore creates a Store backed by db. A nil now uses time.Now.
func NewStore(db *sql.DB, limits Limits, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	if limits.Quizzes <= 0 {
		limits.Quizzes = MaxQuizzes
	}
	if limits.Chats <= 0 {
		limits.Chats = MaxChats
	}
	if limits.Topics <= 0 {
		limits.Topics = MaxTopics
	}
	return &Store{db: db, limits: limits, now: now}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func touchUser(ctx context.Context, tx *sql.Tx, userID, at string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO history_users (user_id, created_at, last_activity) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_activity = excluded.last_activity`,
		userID, at, at)
	if err != nil {
		return fmt.Errorf("touch user %s: %w", userID, err)
	}
	return nil
}

// trim keeps the newest keep rows of table for userID, ordered by column.
func trim(ctx context.Context, tx *sql.Tx, table, column, userID string, keep int) error {
	q := fmt.Sprintf(`DELETE FROM %[1]s WHERE user_id = ? AND id NOT IN (
		SELECT id FROM %[1]s WHERE user_id = ? ORDER BY %[2]s DESC, rowid DESC LIMIT ?)`, table, column)
	if _, err := tx.ExecContext(ctx, q, userID, userID, keep); err != nil {
		return fmt.Errorf("trim %s: %w", table, err)
	}
	return nil
}

// AddQuiz records a graded quiz and returns it with its ID and timestamp set.
func (s *Store) AddQuiz(ctx context.Context, userID string, q Quiz) (Quiz, error) {
	q.ID = uuid.NewString()
	q.Timestamp = s.now().UTC()
	if q.SourceType == "" {
		q.SourceType = "topic"
	}
	if q.NumQuestions == 0 {
		q.NumQuestions = len(q.Questions)
	}
	questions, err := json.Marshal(nonNil(q.Questions))
	if err != nil {
		return Quiz{}, fmt.Errorf("marshal questions: %w", err)
	}
	results, err := json.Marshal(nonNil(q.Results))
	if err != nil {
		return Quiz{}, fmt.Errorf("marshal results: %w", err)
	}
	at := formatTime(q.Timestamp)

	err = s.tx(ctx, func(tx *sql.Tx) error {
		if err := touchUser(ctx, tx, userID, at); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO history_quizzes (id, user_id, created_at, quiz_id, topic, source_type,
				num_questions, score, total_questions, score_percentage, questions, results)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, userID, at, q.QuizID, q.Topic, q.SourceType,
			q.NumQuestions, q.Score, q.TotalQuestions, q.ScorePercentage, string(questions), string(results))
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		return trim(ctx, tx, "history_quizzes", "created_at", userID, s.limits.Quizzes)
	})
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// AddChat records a chat exchange.
func (s *Store) AddChat(ctx context.Context, userID string, c Chat) (Chat, error) {
	c.ID = uuid.NewString()
	c.Timestamp = s.now().UTC()
	if c.Type == "" {
		c.Type = ChatTypeGeneral
	}
	at := formatTime(c.Timestamp)

	err := s.tx(ctx, func(tx *sql.Tx) error {
		if err := touchUser(ctx, tx, userID, at); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO history_chats (id, user_id, created_at, message, response, topic, chat_type, cached)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, userID, at, c.Message, c.Response, c.Topic, c.Type, c.Cached)
		if err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		return trim(ctx, tx, "history_chats", "created_at", userID, s.limits.Chats)
	})
	if err != nil {
		return Chat{}, err
	}
	return c, nil
}

// AddTopic records a use of topic. Topics that differ only in case share
// one entry whose count, last use and source types are updated.
func (s *Store) AddTopic(ctx context.Context, userID, topic, sourceType string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	key := strings.ToLower(topic)
	at := formatTime(s.now())

	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := touchUser(ctx, tx, userID, at); err != nil {
			return err
		}

		var id, rawTypes string
		err := tx.QueryRowContext(ctx,
			`SELECT id, source_types FROM history_topics WHERE user_id = ? AND topic_key = ?`,
			userID, key).Scan(&id, &rawTypes)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			types, _ := json.Marshal(appendSourceType(nil, sourceType))
			_, err = tx.ExecContext(ctx, `
				INSERT INTO history_topics (id, user_id, topic, topic_key, count, first_used, last_used, source_types)
				VALUES (?, ?, ?, ?, 1, ?, ?, ?)`,
				uuid.NewString(), userID, topic, key, at, at, string(types))
			if err != nil {
				return fmt.Errorf("insert topic: %w", err)
			}
		case err != nil:
			return fmt.Errorf("lookup topic: %w", err)
		default:
			var existing []string
			_ = json.Unmarshal([]byte(rawTypes), &existing)
			types, _ := json.Marshal(appendSourceType(existing, sourceType))
			_, err = tx.ExecContext(ctx, `
				UPDATE history_topics SET count = count + 1, last_used = ?, source_types = ? WHERE id = ?`,
				at, string(types), id)
			if err != nil {
				return fmt.Errorf("update topic: %w", err)
			}
		}
		return trim(ctx, tx, "history_topics", "last_used", userID, s.limits.Topics)
	})
}

func appendSourceType(types []string, sourceType string) []string {
	if types == nil {
		types = []string{}
	}
	if sourceType == "" || slices.Contains(types, sourceType) {
		return types
	}
	return append(types, sourceType)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

const quizColumns = `id, quiz_id, created_at, topic, source_type, num_questions, score,
	total_questions, score_percentage, questions, results`

func scanQuiz(row interface{ Scan(...any) error }) (Quiz, error) {
	var (
		q                  Quiz
		at                 string
		questions, results string
	)
	if err := row.Scan(&q.ID, &q.QuizID, &at, &q.Topic, &q.SourceType, &q.NumQuestions, &q.Score,
		&q.TotalQuestions, &q.ScorePercentage, &questions, &results); err != nil {
		return Quiz{}, err
	}
	q.Timestamp = parseTime(at)
	if err := json.Unmarshal([]byte(questions), &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("decode questions of %s: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(results), &q.Results); err != nil {
		return Quiz{}, fmt.Errorf("decode results of %s: %w", q.ID, err)
	}
	return q, nil
}

// Quizzes returns the user's quizzes, newest first. A limit of zero or
// less returns all of them.
func (s *Store) Quizzes(ctx context.Context, userID string, limit int) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quizColumns+` FROM history_quizzes WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := []Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Quiz returns one quiz by its history ID or the quiz ID it was generated with.
func (s *Store) Quiz(ctx context.Context, userID, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM history_quizzes WHERE user_id = ? AND (id = ? OR quiz_id = ?)
		ORDER BY created_at DESC LIMIT 1`, userID, id, id)
	q, err := scanQuiz(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, fmt.Errorf("get quiz %s: %w", id, err)
	}
	return q, nil
}

// Chats returns the user's chat entries, newest first.
func (s *Store) Chats(ctx context.Context, userID string, limit int) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, message, response, topic, chat_type, cached
		FROM history_chats WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	out := []Chat{}
	for rows.Next() {
		var (
			c  Chat
			at string
		)
		if err := rows.Scan(&c.ID, &at, &c.Message, &c.Response, &c.Topic, &c.Type, &c.Cached); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.Timestamp = parseTime(at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Topics returns the user's topics, most used first.
func (s *Store) Topics(ctx context.Context, userID string, limit int) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, count, first_used, last_used, source_types
		FROM history_topics WHERE user_id = ?
		ORDER BY count DESC, last_used DESC LIMIT ?`, userID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	out := []Topic{}
	for rows.Next() {
		var (
			t                Topic
			first, last, raw string
		)
		if err := rows.Scan(&t.ID, &t.Topic, &t.Count, &first, &last, &raw); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		t.FirstUsed = parseTime(first)
		t.LastUsed = parseTime(last)
		if err := json.Unmarshal([]byte(raw), &t.SourceTypes); err != nil {
			return nil, fmt.Errorf("decode source types of %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (s *Store) activity(ctx context.Context, userID string) (created, last *time.Time, err error) {
	var c, l string
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at, last_activity FROM history_users WHERE user_id = ?`, userID).Scan(&c, &l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	ct, lt := parseTime(c), parseTime(l)
	return &ct, &lt, nil
}

// History returns everything recorded for the user. Unknown users get an
// empty history.
func (s *Store) History(ctx context.Context, userID string) (History, error) {
	h := History{UserID: userID}
	var err error
	if h.Quizzes, err = s.Quizzes(ctx, userID, 0); err != nil {
		return History{}, err
	}
	if h.Chats, err = s.Chats(ctx, userID, 0); err != nil {
		return History{}, err
	}
	if h.Topics, err = s.Topics(ctx, userID, 0); err != nil {
		return History{}, err
	}
	if h.CreatedAt, h.LastActivity, err = s.activity(ctx, userID); err != nil {
		return History{}, err
	}
	return h, nil
}

// Stats summarises the user's history. The average score only counts
// quizzes with a non-zero percentage.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	h, err := s.History(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		TotalQuizzes:  len(h.Quizzes),
		TotalChats:    len(h.Chats),
		TotalTopics:   len(h.Topics),
		TopTopics:     h.Topics[:min(5, len(h.Topics))],
		RecentQuizzes: h.Quizzes[:min(5, len(h.Quizzes))],
		RecentChats:   h.Chats[:min(5, len(h.Chats))],
		CreatedAt:     h.CreatedAt,
		LastActivity:  h.LastActivity,
	}
	var sum float64
	var n int
	for _, q := range h.Quizzes {
		if q.ScorePercentage != 0 {
			sum += q.ScorePercentage
			n++
		}
	}
	if n > 0 {
		st.AverageScore = math.Round(sum/float64(n)*100) / 100
	}
	return st, nil
}

// Clear deletes the user's entries in scope. ClearAll also forgets the user.
func (s *Store) Clear(ctx context.Context, userID, scope string) error {
	var tables []string
	switch scope {
	case ClearAll:
		tables = []string{"history_quizzes", "history_chats", "history_topics", "history_users"}
	case ClearQuizzes:
		tables = []string{"history_quizzes"}
	case ClearChats:
		tables = []string{"history_chats"}
	case ClearTopics:
		tables = []string{"history_topics"}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t+" WHERE user_id = ?", userID); err != nil {
				return fmt.Errorf("clear %s: %w", t, err)
			}
		}
		return nil
	})
}
