package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/w-h-a/chatter/storer"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		detail := "failed to register pg storer with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

type postgresStorer struct {
	options storer.Options
	conn    *sql.DB
}

func (s *postgresStorer) Upsert(ctx context.Context, points []storer.Point) error {
	query := `
		INSERT INTO points (id, payload, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = $2, embedding = $3
	`

	for _, p := range points {
		payloadJson, err := json.Marshal(p.Payload)
		if err != nil {
			return err
		}

		if _, err := s.conn.ExecContext(
			ctx,
			query,
			p.Id,
			payloadJson,
			pgvector.NewVector(p.Vector),
		); err != nil {
			return err
		}
	}

	return nil
}

func (s *postgresStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Result, error) {
	if limit < 1 {
		return nil, nil
	}

	query := `
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM points
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := s.conn.QueryContext(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []storer.Result

	for rows.Next() {
		var (
			id          string
			payloadJson []byte
			score       float64
		)

		if err := rows.Scan(&id, &payloadJson, &score); err != nil {
			return nil, err
		}

		var payload map[string]any
		if err := json.Unmarshal(payloadJson, &payload); err != nil {
			return nil, err
		}

		results = append(results, storer.Result{
			Id:      id,
			Score:   float32(score),
			Payload: payload,
		})
	}

	return results, rows.Err()
}

func (s *postgresStorer) Info(ctx context.Context) (storer.Info, error) {
	var count int64
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM points`).Scan(&count); err != nil {
		return storer.Info{}, err
	}

	return storer.Info{
		Points:    count,
		Dimension: s.options.VectorSize,
		Distance:  s.options.Distance,
	}, nil
}

func (s *postgresStorer) configure() error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS points (
				id UUID PRIMARY KEY,
				payload JSONB NOT NULL DEFAULT '{}',
				embedding vector(%d)
			)
		`, s.options.VectorSize),
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 || options.VectorSize == 0 {
		panic("missing location or vector size for postgres storer")
	}

	conn, err := sql.Open(DRIVER, options.Location)
	if err != nil {
		panic(err)
	}

	s := &postgresStorer{
		options: options,
		conn:    conn,
	}

	if err := s.configure(); err != nil {
		panic(err)
	}

	return s
}
