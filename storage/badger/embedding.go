package badger

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cohort/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) *EmbeddingRepository {
	return &EmbeddingRepository{backend: backend}
}

// Close is a no-op; the shared backend is closed by its owner.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// PutEmbeddings stores embedding vectors for the given codes.
func (r *EmbeddingRepository) PutEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for code, vector := range vectors {
			if err := tx.Set(makeEmbeddingKey(code), storage.MarshalEmbedding(vector)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEmbedding retrieves the embedding for a single code.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, code string) ([]float32, error) {
	var vector []float32
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(code))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vector, err = storage.UnmarshalEmbedding(val)
			return err
		})
	}, false)
	return vector, err
}

// GetAllEmbeddings retrieves every stored embedding vector.
func (r *EmbeddingRepository) GetAllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	vectors := make(map[string][]float32)
	prefix := embeddingPrefix + ":"
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			code := strings.TrimPrefix(string(item.Key()), prefix)
			err := item.Value(func(val []byte) error {
				vector, err := storage.UnmarshalEmbedding(val)
				if err != nil {
					return err
				}
				vectors[code] = vector
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
