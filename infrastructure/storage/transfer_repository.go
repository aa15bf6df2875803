//go:generate go run go.uber.org/mock/mockgen -source=transfer_repository.go -destination=../../mocks/mock_transfer_repository.go -package=mocks
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"courier-lab/domain"
)

// TransferRecord is the archived form of a terminal job.
type TransferRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Requester   string    `json:"requester"`
	Status      string    `json:"status"`
	Destination string    `json:"destination,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

type ITransferRepository interface {
	Record(job *domain.Job) error
	List(limit int) ([]TransferRecord, error)
	PurgeOlderThan(cutoff time.Time) (int, error)
}

// TransferRepository archives terminal jobs in BadgerDB.
// The key is "transfer:{finished_unixnano_padded}:{id}" so records sort
// chronologically; 19-digit zero padding keeps lexicographic order, the id
// disambiguates same-nanosecond finishes.
type TransferRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewTransferRepository(db *badger.DB, log *slog.Logger) *TransferRepository {
	return &TransferRepository{db: db, log: log}
}

const transferPrefix = "transfer:"

func transferKey(finishedAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", transferPrefix, finishedAt.UnixNano(), id))
}

func (r *TransferRepository) Record(job *domain.Job) error {
	record := FromJob(job)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(transferKey(record.FinishedAt, record.ID), data)
	})
}

// List returns the most recent records first, up to limit (0 means all).
func (r *TransferRepository) List(limit int) ([]TransferRecord, error) {
	var records []TransferRecord
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(transferPrefix)
		// Reverse iteration needs a seek past the last possible key.
		seekKey := append([]byte(transferPrefix), []byte("9999999999999999999:")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var record TransferRecord
				if err := json.Unmarshal(value, &record); err != nil {
					return fmt.Errorf("corrupt archive record %s: %w", it.Item().Key(), err)
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PurgeOlderThan deletes records finished before the cutoff and returns
// how many were removed.
func (r *TransferRepository) PurgeOlderThan(cutoff time.Time) (int, error) {
	var stale [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(transferPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			nanos, ok := parseTransferKey(string(key))
			if !ok {
				r.log.Warn("Skipping malformed archive key", "key", string(key))
				continue
			}
			if nanos >= cutoff.UnixNano() {
				// Keys are time-ordered, nothing newer can be stale.
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range stale {
		err := r.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func parseTransferKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, transferPrefix)
	if !ok {
		return 0, false
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return nanos, true
}

func FromJob(job *domain.Job) TransferRecord {
	return TransferRecord{
		ID:          string(job.ID),
		Name:        job.Name,
		ContentType: job.ContentType,
		Size:        job.Size,
		Requester:   job.Requester,
		Status:      job.Status.String(),
		Destination: job.Destination,
		Reason:      job.Reason,
		SubmittedAt: job.SubmittedAt,
		FinishedAt:  job.FinishedAt,
	}
}
