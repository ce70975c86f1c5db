package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tazhate/freetime/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER UNIQUE NOT NULL,
			weeks INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Per-subscription working window, -1 means configured default
		`ALTER TABLE subscriptions ADD COLUMN day_start_hour INTEGER NOT NULL DEFAULT -1`,
		`ALTER TABLE subscriptions ADD COLUMN day_end_hour INTEGER NOT NULL DEFAULT -1`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Subscriptions ===

// UpsertSubscription creates the chat's subscription or replaces its settings
func (s *Storage) UpsertSubscription(sub *domain.Subscription) error {
	_, err := s.db.Exec(
		`INSERT INTO subscriptions (chat_id, weeks, day_start_hour, day_end_hour) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			weeks = excluded.weeks,
			day_start_hour = excluded.day_start_hour,
			day_end_hour = excluded.day_end_hour`,
		sub.ChatID, sub.Weeks, sub.DayStartHour, sub.DayEndHour,
	)
	if err != nil {
		return err
	}

	stored, err := s.GetSubscription(sub.ChatID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("subscription for chat %d not found after upsert", sub.ChatID)
	}
	sub.ID = stored.ID
	sub.CreatedAt = stored.CreatedAt
	return nil
}

// GetSubscription returns nil when the chat is not subscribed
func (s *Storage) GetSubscription(chatID int64) (*domain.Subscription, error) {
	sub := &domain.Subscription{}
	err := s.db.QueryRow(
		`SELECT id, chat_id, weeks, day_start_hour, day_end_hour, created_at FROM subscriptions WHERE chat_id = ?`,
		chatID,
	).Scan(&sub.ID, &sub.ChatID, &sub.Weeks, &sub.DayStartHour, &sub.DayEndHour, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

// DeleteSubscription reports whether the chat had a subscription
func (s *Storage) DeleteSubscription(chatID int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM subscriptions WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) ListSubscriptions() ([]*domain.Subscription, error) {
	rows, err := s.db.Query(
		`SELECT id, chat_id, weeks, day_start_hour, day_end_hour, created_at FROM subscriptions ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub := &domain.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.ChatID, &sub.Weeks, &sub.DayStartHour, &sub.DayEndHour, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Storage) CountSubscriptions() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subscriptions`).Scan(&n)
	return n, err
}
