package history

import (
	"database/sql"

	"github.com/HerbHall/studyforge/pkg/plugin"
)

// migrations returns the history module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create history tables (users, quizzes, chats, topics)",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE history_users (
						user_id       TEXT PRIMARY KEY,
						created_at    TEXT NOT NULL,
						last_activity TEXT NOT NULL
					)`,
					`CREATE TABLE history_quizzes (
						id               TEXT PRIMARY KEY,
						user_id          TEXT NOT NULL,
						created_at       TEXT NOT NULL,
						quiz_id          TEXT NOT NULL DEFAULT '',
						topic            TEXT NOT NULL DEFAULT '',
						source_type      TEXT NOT NULL DEFAULT 'topic',
						num_questions    INTEGER NOT NULL DEFAULT 0,
						score            INTEGER NOT NULL DEFAULT 0,
						total_questions  INTEGER NOT NULL DEFAULT 0,
						score_percentage REAL NOT NULL DEFAULT 0,
						questions        TEXT NOT NULL DEFAULT '[]',
						results          TEXT NOT NULL DEFAULT '[]'
					)`,
					`CREATE INDEX idx_history_quizzes_user ON history_quizzes(user_id, created_at)`,
					`CREATE TABLE history_chats (
						id         TEXT PRIMARY KEY,
						user_id    TEXT NOT NULL,
						created_at TEXT NOT NULL,
						message    TEXT NOT NULL,
						response   TEXT NOT NULL,
						topic      TEXT NOT NULL DEFAULT '',
						chat_type  TEXT NOT NULL DEFAULT 'general',
						cached     INTEGER NOT NULL DEFAULT 0
					)`,
					`CREATE INDEX idx_history_chats_user ON history_chats(user_id, created_at)`,
					`CREATE TABLE history_topics (
						id           TEXT PRIMARY KEY,
						user_id      TEXT NOT NULL,
						topic        TEXT NOT NULL,
						topic_key    TEXT NOT NULL,
						count        INTEGER NOT NULL DEFAULT 1,
						first_used   TEXT NOT NULL,
						last_used    TEXT NOT NULL,
						source_types TEXT NOT NULL DEFAULT '[]',
						UNIQUE (user_id, topic_key)
					)`,
					`CREATE INDEX idx_history_topics_user ON history_topics(user_id, last_used)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
