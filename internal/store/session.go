package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionStore persists whole dialogue sessions as jsonb records. The record
// column is the source of truth; the scalar columns exist for filtering and
// ordering.
type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.DialogueSession) error {
	record, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, topic, status, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status,
		     record = EXCLUDED.record,
		     updated_at = EXCLUDED.updated_at`,
		sess.ID, sess.UserID, sess.Topic, sess.Status, record, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.DialogueSession, error) {
	var record []byte
	err := s.db.QueryRow(ctx,
		`SELECT record FROM sessions WHERE id = $1`,
		id,
	).Scan(&record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var sess domain.DialogueSession
	if err := json.Unmarshal(record, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session record: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) List(ctx context.Context, filter domain.SessionFilter) ([]domain.DialogueSession, error) {
	var conditions []string
	var args []any

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT record FROM sessions %s ORDER BY updated_at DESC`,
		where,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions query: %w", err)
	}
	defer rows.Close()

	var sessions []domain.DialogueSession
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, err
		}
		var sess domain.DialogueSession
		if err := json.Unmarshal(record, &sess); err != nil {
			return nil, fmt.Errorf("unmarshal session record: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
