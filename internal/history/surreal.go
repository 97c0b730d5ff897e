package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"

	"parley/internal/config"
)

// SurrealStore persists messages in SurrealDB.
type SurrealStore struct {
	db *surrealdb.DB
}

// Connect opens a SurrealDB connection from the configuration and wraps
// it in a store.
func Connect(ctx context.Context, cfg *config.Config) (*SurrealStore, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}

	authData := &surrealdb.Auth{
		Username: cfg.DBUser,
		Password: cfg.DBPass,
	}
	if _, err = db.SignIn(ctx, authData); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if err = db.Use(ctx, cfg.DBNs, cfg.DBDb); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/db: %w", err)
	}

	slog.Info("Connected to SurrealDB for message history")
	return &SurrealStore{db: db}, nil
}

// NewSurrealStore wraps an existing connection.
func NewSurrealStore(db *surrealdb.DB) *SurrealStore {
	return &SurrealStore{db: db}
}

// Append implements Store.
func (s *SurrealStore) Append(ctx context.Context, author, body string) (*Message, error) {
	query := "CREATE message SET author = $author, body = $body, createdAt = time::now() RETURN AFTER"
	params := map[string]any{
		"author": author,
		"body":   body,
	}

	created, err := selectOne[Message](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("message was not created or could not be fetched")
	}
	return created, nil
}

// Recent implements Store, returning up to limit messages oldest first.
func (s *SurrealStore) Recent(ctx context.Context, limit int) ([]*Message, error) {
	query := "SELECT * FROM message ORDER BY createdAt DESC LIMIT $limit"
	params := map[string]any{
		"limit": limit,
	}

	rows, err := selectRows[Message](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Newest-first from the query; reverse for oldest-first replay.
	messages := make([]*Message, len(rows))
	for i := range rows {
		messages[len(rows)-1-i] = &rows[i]
	}
	return messages, nil
}

// Close shuts down the underlying connection.
func (s *SurrealStore) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}

func selectRows[T any](ctx context.Context, db *surrealdb.DB, q string, params map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, q, params)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

func selectOne[T any](ctx context.Context, db *surrealdb.DB, q string, params map[string]any) (*T, error) {
	results, err := selectRows[T](ctx, db, q, params)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}
