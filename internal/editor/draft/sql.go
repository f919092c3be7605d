package draft

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/util/compression"
)

// SQLStore keeps compressed drafts in the drafts table.
type SQLStore struct {
	db         db.DB
	compressor compression.Compressor
}

func NewSQLStore(d db.DB, c compression.Compressor) *SQLStore {
	if c == nil {
		c = compression.ZstdCompressor{}
	}
	return &SQLStore{db: d, compressor: c}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM drafts WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read draft")
	}

	data, err := s.compressor.Decompress(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decompress draft")
	}
	return data, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, data []byte) error {
	payload, err := s.compressor.Compress(data)
	if err != nil {
		return errors.Wrap(err, "failed to compress draft")
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO drafts (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload)
	return errors.Wrap(err, "failed to write draft")
}

func (s *SQLStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key)
	return errors.Wrap(err, "failed to clear draft")
}
