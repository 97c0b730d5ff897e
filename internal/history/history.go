// Package history persists chat messages so a newly registered client
// can be caught up with a bounded replay. The live message list each
// session holds is append-only and ephemeral; this store is the only
// thing that survives the process.
package history

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Message is one stored chat message. The field is named Author rather
// than From because "from" is a reserved word in SurrealQL. ID and
// CreatedAt use the driver's CBOR-tagged types so SurrealDB rows decode
// cleanly; the in-memory store fills them the same way.
type Message struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Author    string                        `json:"author"`
	Body      string                        `json:"body"`
	CreatedAt *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
}

// Store is the persistence contract for chat messages.
type Store interface {
	// Append saves a new message.
	Append(ctx context.Context, author, body string) (*Message, error)
	// Recent returns up to limit messages, oldest first.
	Recent(ctx context.Context, limit int) ([]*Message, error)
}
