package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lfarias/zoomrank/internal/models"
)

var ErrRunNotFound = errors.New("ranking run not found")

// Run is one completed scrape-merge-rank cycle.
type Run struct {
	ID           uuid.UUID `json:"id"`
	Query        string    `json:"query"`
	Filters      []string  `json:"filters"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	MaxConns int32
}

// Store persists ranking runs to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the ranking tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS ranking_runs (
			id UUID PRIMARY KEY,
			query TEXT NOT NULL,
			filters TEXT[] NOT NULL,
			product_count INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS ranked_products (
			run_id UUID NOT NULL REFERENCES ranking_runs(id) ON DELETE CASCADE,
			position INT NOT NULL,
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			rating DOUBLE PRECISION NOT NULL,
			occurrence_count INT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			detail_url TEXT NOT NULL,
			observed_filters TEXT[] NOT NULL,
			specifications JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (run_id, position)
		);`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveRun inserts the run and its ranked products in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *Run, products []*models.Product) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.ProductCount = len(products)

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ranking_runs (id, query, filters, product_count, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			run.ID, run.Query, run.Filters, run.ProductCount, run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for i, p := range products {
			specs, err := json.Marshal(p.Specifications)
			if err != nil {
				return fmt.Errorf("failed to marshal specifications for %q: %w", p.Name, err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO ranked_products
				(run_id, position, name, price, rating, occurrence_count, score, detail_url, observed_filters, specifications)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				run.ID, i+1, p.Name, p.Price, p.Rating, p.OccurrenceCount,
				p.ScoreValue(), p.DetailURL, p.ObservedFilters, specs)
			if err != nil {
				return fmt.Errorf("failed to insert ranked product %q: %w", p.Name, err)
			}
		}

		return nil
	})
}

// LatestRun returns the most recent run and its products.
func (s *Store) LatestRun(ctx context.Context) (*Run, []*models.Product, error) {
	run := &Run{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, query, filters, product_count, created_at
		FROM ranking_runs
		ORDER BY created_at DESC
		LIMIT 1`).Scan(&run.ID, &run.Query, &run.Filters, &run.ProductCount, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrRunNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	products, err := s.runProducts(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, products, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, []*models.Product, error) {
	run := &Run{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, query, filters, product_count, created_at
		FROM ranking_runs
		WHERE id = $1`, id).Scan(&run.ID, &run.Query, &run.Filters, &run.ProductCount, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrRunNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query run: %w", err)
	}

	products, err := s.runProducts(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, products, nil
}

func (s *Store) runProducts(ctx context.Context, runID uuid.UUID) ([]*models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, price, rating, occurrence_count, score, detail_url, observed_filters, specifications
		FROM ranked_products
		WHERE run_id = $1
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		var score float64
		var specs []byte

		if err := rows.Scan(&p.Name, &p.Price, &p.Rating, &p.OccurrenceCount,
			&score, &p.DetailURL, &p.ObservedFilters, &specs); err != nil {
			return nil, fmt.Errorf("failed to scan ranked product: %w", err)
		}

		p.Score = &score
		if err := json.Unmarshal(specs, &p.Specifications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal specifications: %w", err)
		}

		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
