package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"courier-lab/domain"
)

type fakeObjectStore struct {
	objects []domain.StoredObject
	deleted []string
}

func (s *fakeObjectStore) ListObjects(context.Context) ([]domain.StoredObject, error) {
	return s.objects, nil
}

func (s *fakeObjectStore) DeleteObject(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func TestMaintenanceService_FindDuplicates(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()

	store := &fakeObjectStore{objects: []domain.StoredObject{
		{Key: "uploads/report.pdf", Name: "report.pdf", LastModified: now},
		{Key: "uploads/Report.pdf", Name: "Report.pdf", LastModified: now.Add(time.Hour)},
		{Key: "uploads/unique.txt", Name: "unique.txt", LastModified: now},
	}}
	svc := NewMaintenanceService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	duplicates, err := svc.FindDuplicates(context.Background())
	req.NoError(err)

	// Case-insensitive name matching; singletons are not reported.
	req.Len(duplicates, 1)
	req.Len(duplicates["report.pdf"], 2)
}

func TestMaintenanceService_PurgeKeepsTheOldestCopy(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()

	store := &fakeObjectStore{objects: []domain.StoredObject{
		{Key: "uploads/copy-late.pdf", Name: "report.pdf", LastModified: now.Add(2 * time.Hour)},
		{Key: "uploads/copy-original.pdf", Name: "report.pdf", LastModified: now},
		{Key: "uploads/copy-mid.pdf", Name: "report.pdf", LastModified: now.Add(time.Hour)},
		{Key: "uploads/unique.txt", Name: "unique.txt", LastModified: now},
	}}
	svc := NewMaintenanceService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	deleted, err := svc.PurgeDuplicates(context.Background())
	req.NoError(err)
	req.Equal(2, deleted)
	req.ElementsMatch([]string{"uploads/copy-mid.pdf", "uploads/copy-late.pdf"}, store.deleted)
}
