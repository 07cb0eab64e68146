package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder implements Recorder using PostgreSQL
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRecorder connects to PostgreSQL and applies pending migrations
func NewPostgresRecorder(ctx context.Context, cfg PostgresConfig) (*PostgresRecorder, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 4
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresRecorder{pool: pool}, nil
}

// Record implements Recorder
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	questions := e.Questions
	if questions == nil {
		questions = []Assignment{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO topic_workflows (id, topic_id, topic_name, state, questions, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			topic_id = EXCLUDED.topic_id,
			topic_name = EXCLUDED.topic_name,
			state = EXCLUDED.state,
			questions = EXCLUDED.questions,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		e.WorkflowID,
		e.TopicID,
		e.TopicName,
		string(e.State),
		questionsJSON,
		nullString(e.Error),
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record workflow: %w", err)
	}

	return nil
}

// ListByState implements Recorder
func (r *PostgresRecorder) ListByState(ctx context.Context, state State) ([]Entry, error) {
	query := `
		SELECT id, topic_id, topic_name, state, questions, error, updated_at
		FROM topic_workflows
		WHERE state = $1
		ORDER BY updated_at ASC
	`

	rows, err := r.pool.Query(ctx, query, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			stateStr      string
			questionsJSON []byte
			errMsg        *string
		)
		if err := rows.Scan(&e.WorkflowID, &e.TopicID, &e.TopicName, &stateStr, &questionsJSON, &errMsg, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		e.State = State(stateStr)
		if errMsg != nil {
			e.Error = *errMsg
		}
		if len(questionsJSON) > 0 {
			if err := json.Unmarshal(questionsJSON, &e.Questions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
			}
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity
func (r *PostgresRecorder) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
