package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type ConceptStore struct {
	db *pgxpool.Pool
}

func NewConceptStore(db *pgxpool.Pool) *ConceptStore {
	return &ConceptStore{db: db}
}

func (s *ConceptStore) Upsert(ctx context.Context, c *domain.Concept) error {
	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	if c.Scale == "" {
		c.Scale = domain.ScaleMeso
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO concepts (name, domain, description, scale, era, assumptions, keywords, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name) DO UPDATE
		 SET domain = EXCLUDED.domain,
		     description = EXCLUDED.description,
		     scale = EXCLUDED.scale,
		     era = EXCLUDED.era,
		     assumptions = EXCLUDED.assumptions,
		     keywords = EXCLUDED.keywords,
		     metadata = EXCLUDED.metadata,
		     embedding = COALESCE(EXCLUDED.embedding, concepts.embedding),
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Domain, c.Description, c.Scale, c.Era, c.Assumptions, c.Keywords, c.Metadata, embedding,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *ConceptStore) GetByName(ctx context.Context, name string) (*domain.Concept, error) {
	c := &domain.Concept{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, domain, description, scale, era, assumptions, keywords, metadata, created_at, updated_at
		 FROM concepts WHERE name = $1`,
		name,
	).Scan(&c.ID, &c.Name, &c.Domain, &c.Description, &c.Scale, &c.Era, &c.Assumptions, &c.Keywords, &c.Metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ConceptStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM concepts WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ConceptStore) Search(ctx context.Context, embedding []float32, opts domain.SearchOpts) ([]domain.ConceptWithDistance, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	vec := pgvector.NewVector(embedding)

	var conditions []string
	var args []any

	conditions = append(conditions, "embedding IS NOT NULL")

	if opts.Domain != "" {
		conditions = append(conditions, fmt.Sprintf("domain = $%d", len(args)+1))
		args = append(args, opts.Domain)
	}

	embeddingParam := len(args) + 1
	args = append(args, vec)

	limitParam := len(args) + 1
	args = append(args, opts.Limit)

	query := fmt.Sprintf(
		`SELECT id, name, domain, description, scale, era, assumptions, keywords, metadata, created_at, updated_at,
		        embedding <=> $%d AS distance
		 FROM concepts
		 WHERE %s
		 ORDER BY distance ASC
		 LIMIT $%d`,
		embeddingParam,
		strings.Join(conditions, " AND "),
		limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("concept search query: %w", err)
	}
	defer rows.Close()

	var results []domain.ConceptWithDistance
	for rows.Next() {
		var cd domain.ConceptWithDistance
		err := rows.Scan(
			&cd.ID, &cd.Name, &cd.Domain, &cd.Description, &cd.Scale, &cd.Era,
			&cd.Assumptions, &cd.Keywords, &cd.Metadata, &cd.CreatedAt, &cd.UpdatedAt,
			&cd.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan concept search row: %w", err)
		}
		results = append(results, cd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("concept search rows: %w", err)
	}

	return results, nil
}

func (s *ConceptStore) SearchByName(ctx context.Context, fragment string, limit int) ([]domain.Concept, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, name, domain, description, scale, era, assumptions, keywords, metadata, created_at, updated_at
		 FROM concepts
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY name ASC
		 LIMIT $2`,
		fragment, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []domain.Concept
	for rows.Next() {
		var c domain.Concept
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.Description, &c.Scale, &c.Era, &c.Assumptions, &c.Keywords, &c.Metadata, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *ConceptStore) Domains(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT domain FROM concepts ORDER BY domain ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (s *ConceptStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM concepts`).Scan(&count)
	return count, err
}
