//go:generate go run go.uber.org/mock/mockgen -source=admin_repository.go -destination=../../mocks/mock_admin_repository.go -package=mocks
package storage

import (
	goerrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"courier-lab/errors"
)

type IAdminRepository interface {
	Add(handle string) error
	Remove(handle string) error
	Exists(handle string) (bool, error)
	List() ([]string, error)
}

// AdminRepository persists the dynamic admin allow-list in BadgerDB,
// one "admin:{handle}" key per admin. Permanent admins live in config,
// not here.
type AdminRepository struct {
	db *badger.DB
}

func NewAdminRepository(db *badger.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

const adminPrefix = "admin:"

func adminKey(handle string) []byte {
	return []byte(adminPrefix + handle)
}

func (r *AdminRepository) Add(handle string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(adminKey(handle))
		if err == nil {
			return errors.ErrAdminExists
		}
		if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(adminKey(handle), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

func (r *AdminRepository) Remove(handle string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(adminKey(handle))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotAdmin
		}
		if err != nil {
			return err
		}
		return txn.Delete(adminKey(handle))
	})
}

func (r *AdminRepository) Exists(handle string) (bool, error) {
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(adminKey(handle))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (r *AdminRepository) List() ([]string, error) {
	var handles []string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(adminPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			handles = append(handles, string(it.Item().Key()[len(adminPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}
