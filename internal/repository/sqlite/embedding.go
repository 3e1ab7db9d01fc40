package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

var _ repository.EmbeddingRepository = (*DB)(nil)

// UpsertEmbedding stores the description embedding for a snippet, replacing
// any previous vector. The service layer guarantees rows exist only for
// public snippets with non-empty descriptions.
func (db *DB) UpsertEmbedding(ctx context.Context, snippetID int64, modelName string, vec []float32) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO embeddings (snippet_id, model, dims, vector, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (snippet_id) DO UPDATE SET
		    model = excluded.model, dims = excluded.dims,
		    vector = excluded.vector, updated_at = excluded.updated_at`,
		snippetID, modelName, len(vec), encodeVector(vec))
	if err != nil {
		return fmt.Errorf("sqlite: upserting embedding for snippet %d: %w", snippetID, err)
	}
	return nil
}

// DeleteEmbedding removes the stored vector. Deleting a missing row is not
// an error.
func (db *DB) DeleteEmbedding(ctx context.Context, snippetID int64) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM embeddings WHERE snippet_id = ?`, snippetID); err != nil {
		return fmt.Errorf("sqlite: deleting embedding for snippet %d: %w", snippetID, err)
	}
	return nil
}

// AllEmbeddings loads every stored vector, used to warm the in-memory index
// at startup.
func (db *DB) AllEmbeddings(ctx context.Context) (map[int64][]float32, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT snippet_id, dims, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]float32)
	for rows.Next() {
		var (
			id   int64
			dims int
			blob []byte
		)
		if err := rows.Scan(&id, &dims, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scanning embedding row: %w", err)
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("sqlite: embedding for snippet %d: %w", id, err)
		}
		out[id] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating embeddings: %w", err)
	}
	return out, nil
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("blob is %d bytes, want %d for %d dims", len(blob), 4*dims, dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
