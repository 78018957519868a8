package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/polymath/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphStore keeps the concept graph in relational tables and answers
// traversal queries with bounded recursive CTEs.
type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

const (
	RelationDerivedFrom = "derived_from"
	RelationRelatedTo   = "related_to"
	RelationInfluences  = "influences"
)

func (s *GraphStore) SearchByKeyword(ctx context.Context, keyword, dom string, limit int) ([]domain.Concept, error) {
	if limit <= 0 {
		limit = 10
	}

	var conditions []string
	var args []any

	args = append(args, keyword)
	conditions = append(conditions, "(c.name ILIKE '%' || $1 || '%' OR c.description ILIKE '%' || $1 || '%')")

	if dom != "" {
		conditions = append(conditions, fmt.Sprintf("c.domain = $%d", len(args)+1))
		args = append(args, dom)
	}

	limitParam := len(args) + 1
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT c.id, c.name, c.domain, c.description, c.scale, c.era, c.assumptions, c.keywords, c.metadata, c.created_at, c.updated_at,
		        COUNT(e.source) AS connections
		 FROM concepts c
		 LEFT JOIN concept_edges e ON e.source = c.name OR e.target = c.name
		 WHERE %s
		 GROUP BY c.id, c.name, c.domain, c.description, c.scale, c.era, c.assumptions, c.keywords, c.metadata, c.created_at, c.updated_at
		 ORDER BY connections DESC, c.name ASC
		 LIMIT $%d`,
		strings.Join(conditions, " AND "),
		limitParam,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graph keyword query: %w", err)
	}
	defer rows.Close()

	var concepts []domain.Concept
	for rows.Next() {
		var c domain.Concept
		var connections int
		if err := rows.Scan(&c.ID, &c.Name, &c.Domain, &c.Description, &c.Scale, &c.Era, &c.Assumptions, &c.Keywords, &c.Metadata, &c.CreatedAt, &c.UpdatedAt, &connections); err != nil {
			return nil, fmt.Errorf("scan graph keyword row: %w", err)
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

// Ancestors walks derivation edges upward. Depth is bounded and cycles are
// cut by the path check.
func (s *GraphStore) Ancestors(ctx context.Context, name string, maxDepth int) ([]string, error) {
	return s.walkDerivation(ctx, name, maxDepth, true)
}

func (s *GraphStore) Descendants(ctx context.Context, name string, maxDepth int) ([]string, error) {
	return s.walkDerivation(ctx, name, maxDepth, false)
}

func (s *GraphStore) walkDerivation(ctx context.Context, name string, maxDepth int, up bool) ([]string, error) {
	if maxDepth <= 0 || maxDepth > 5 {
		maxDepth = 5
	}

	from, to := "source", "target"
	if !up {
		from, to = "target", "source"
	}

	query := fmt.Sprintf(
		`WITH RECURSIVE walk(name, depth, path) AS (
		     SELECT e.%[2]s, 1, ARRAY[e.%[1]s, e.%[2]s]
		     FROM concept_edges e
		     WHERE e.%[1]s = $1 AND e.relation = $2
		   UNION ALL
		     SELECT e.%[2]s, w.depth + 1, w.path || e.%[2]s
		     FROM concept_edges e
		     JOIN walk w ON e.%[1]s = w.name
		     WHERE e.relation = $2 AND w.depth < $3 AND NOT e.%[2]s = ANY(w.path)
		 )
		 SELECT name FROM walk GROUP BY name ORDER BY MIN(depth), name`,
		from, to,
	)

	rows, err := s.db.Query(ctx, query, name, RelationDerivedFrom, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("lineage query: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *GraphStore) Relationships(ctx context.Context, name string) (*domain.ConceptRelationships, error) {
	rel := &domain.ConceptRelationships{Concept: name}

	rows, err := s.db.Query(ctx,
		`SELECT CASE WHEN source = $1 THEN target ELSE source END AS other
		 FROM concept_edges
		 WHERE (source = $1 OR target = $1) AND relation = $2
		 ORDER BY other`,
		name, RelationRelatedTo,
	)
	if err != nil {
		return nil, fmt.Errorf("relationships query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var other string
		if err := rows.Scan(&other); err != nil {
			return nil, err
		}
		rel.Related = append(rel.Related, other)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bridgeRows, err := s.db.Query(ctx,
		`SELECT domain FROM concept_bridges WHERE concept = $1 ORDER BY domain`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("bridges query: %w", err)
	}
	defer bridgeRows.Close()

	for bridgeRows.Next() {
		var d string
		if err := bridgeRows.Scan(&d); err != nil {
			return nil, err
		}
		rel.BridgeDomains = append(rel.BridgeDomains, d)
	}
	return rel, bridgeRows.Err()
}

// ShortestDomainPath finds the minimum hop count between two domains over
// undirected domain edges, searching at most 10 hops.
func (s *GraphStore) ShortestDomainPath(ctx context.Context, domainA, domainB string) (int, bool, error) {
	if domainA == domainB {
		return 0, true, nil
	}

	var length *int
	err := s.db.QueryRow(ctx,
		`WITH RECURSIVE walk(domain, depth, path) AS (
		     SELECT $1::text, 0, ARRAY[$1::text]
		   UNION ALL
		     SELECT CASE WHEN e.domain_a = w.domain THEN e.domain_b ELSE e.domain_a END,
		            w.depth + 1,
		            w.path || CASE WHEN e.domain_a = w.domain THEN e.domain_b ELSE e.domain_a END
		     FROM domain_edges e
		     JOIN walk w ON e.domain_a = w.domain OR e.domain_b = w.domain
		     WHERE w.depth < 10
		       AND NOT (CASE WHEN e.domain_a = w.domain THEN e.domain_b ELSE e.domain_a END) = ANY(w.path)
		 )
		 SELECT MIN(depth) FROM walk WHERE domain = $2`,
		domainA, domainB,
	).Scan(&length)
	if err != nil {
		return 0, false, fmt.Errorf("domain path query: %w", err)
	}
	if length == nil {
		return 0, false, nil
	}
	return *length, true, nil
}

func (s *GraphStore) Connected(ctx context.Context, conceptA, conceptB string) (bool, error) {
	var connected bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM concept_edges
		     WHERE (source = $1 AND target = $2) OR (source = $2 AND target = $1)
		 )`,
		conceptA, conceptB,
	).Scan(&connected)
	return connected, err
}

func (s *GraphStore) FusionPrecedents(ctx context.Context, domains []string, limit int) ([]domain.FusionPrecedent, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(ctx,
		`SELECT name, source_domains, COALESCE(outcome, '')
		 FROM fusion_cases
		 WHERE source_domains && $1
		 ORDER BY name
		 LIMIT $2`,
		domains, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fusion precedents query: %w", err)
	}
	defer rows.Close()

	var precedents []domain.FusionPrecedent
	for rows.Next() {
		var p domain.FusionPrecedent
		if err := rows.Scan(&p.Name, &p.SourceDomains, &p.Outcome); err != nil {
			return nil, err
		}
		precedents = append(precedents, p)
	}
	return precedents, rows.Err()
}

func (s *GraphStore) AddEdge(ctx context.Context, source, target, relation string, strength float32) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO concept_edges (source, target, relation, strength)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (source, target, relation) DO UPDATE SET strength = EXCLUDED.strength`,
		source, target, relation, strength,
	)
	return err
}

func (s *GraphStore) AddDomainEdge(ctx context.Context, domainA, domainB string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO domain_edges (domain_a, domain_b)
		 VALUES ($1, $2)
		 ON CONFLICT (domain_a, domain_b) DO NOTHING`,
		domainA, domainB,
	)
	return err
}

func (s *GraphStore) AddBridge(ctx context.Context, concept, dom string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO concept_bridges (concept, domain)
		 VALUES ($1, $2)
		 ON CONFLICT (concept, domain) DO NOTHING`,
		concept, dom,
	)
	return err
}
