package badger

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/cohort/core"
	"github.com/poiesic/cohort/storage"
)

// VariableRepository implements storage.VariableRepository for BadgerDB.
type VariableRepository struct {
	backend *Backend
}

var _ storage.VariableRepository = (*VariableRepository)(nil)

// NewVariableRepository creates a new VariableRepository.
func NewVariableRepository(backend *Backend) *VariableRepository {
	return &VariableRepository{backend: backend}
}

// Close is a no-op; the shared backend is closed by its owner.
func (r *VariableRepository) Close() error {
	return nil
}

// AddVariables adds one or more variable records to storage.
func (r *VariableRepository) AddVariables(ctx context.Context, variables ...*core.Variable) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, v := range variables {
			if err := core.ValidateVariable(v); err != nil {
				return err
			}

			key := makeVariableKey(v.Code)
			if _, err := tx.Get(key); err == nil {
				return storage.ErrDuplicateKey
			} else if err != badger.ErrKeyNotFound {
				return err
			}

			if err := tx.Set(key, storage.MarshalVariable(v)); err != nil {
				return err
			}

			// Category index entry; value is the code for cheap scans
			catKey := makeCategoryKey(v.Category, v.Code)
			if err := tx.Set(catKey, []byte(v.Code)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetVariable retrieves a single variable record by code.
func (r *VariableRepository) GetVariable(ctx context.Context, code string) (*core.Variable, error) {
	var result *core.Variable
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVariableKey(code))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalVariable(val)
			return err
		})
	}, false)
	return result, err
}

// GetAllVariables retrieves every variable record, ordered by code.
// Badger iterates keys in lexical order, so the prefix scan is already
// code-ordered.
func (r *VariableRepository) GetAllVariables(ctx context.Context) ([]*core.Variable, error) {
	var results []*core.Variable
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(variablePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var v *core.Variable
			err := item.Value(func(val []byte) error {
				var err error
				v, err = storage.UnmarshalVariable(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, v)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetCodesByCategory retrieves the codes of all variables in a category.
func (r *VariableRepository) GetCodesByCategory(ctx context.Context, category string) ([]string, error) {
	var codes []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialCategoryKey(category)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			codes = append(codes, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// CountVariables returns the number of stored variable records.
func (r *VariableRepository) CountVariables(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(variablePrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
