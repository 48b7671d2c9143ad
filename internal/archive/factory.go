package archive

import (
	"context"
	"strings"
)

// NewStore picks a backend: postgres when databaseURL is set, an embedded
// sqlite file when sqlitePath is set, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	if strings.TrimSpace(sqlitePath) != "" {
		return NewSQLiteStore(ctx, sqlitePath)
	}
	return NewInMemoryStore(), nil
}
