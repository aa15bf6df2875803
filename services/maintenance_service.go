package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"courier-lab/domain"
)

// ObjectStore is the maintenance-facing slice of the object store.
type ObjectStore interface {
	ListObjects(ctx context.Context) ([]domain.StoredObject, error)
	DeleteObject(ctx context.Context, key string) error
}

// MaintenanceService finds and removes duplicate objects in the
// destination store, matching on normalized names (lowercased, trimmed)
// so "Report.pdf " and "report.pdf" count as the same file.
type MaintenanceService struct {
	store ObjectStore
	log   *slog.Logger
}

func NewMaintenanceService(store ObjectStore, log *slog.Logger) *MaintenanceService {
	return &MaintenanceService{store: store, log: log}
}

// FindDuplicates groups stored objects by normalized name and returns only
// the groups with more than one member.
func (s *MaintenanceService) FindDuplicates(ctx context.Context) (map[string][]domain.StoredObject, error) {
	objects, err := s.store.ListObjects(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]domain.StoredObject)
	for _, object := range objects {
		normalized := strings.ToLower(strings.TrimSpace(object.Name))
		groups[normalized] = append(groups[normalized], object)
	}

	duplicates := make(map[string][]domain.StoredObject)
	for name, members := range groups {
		if len(members) > 1 {
			duplicates[name] = members
		}
	}
	return duplicates, nil
}

// PurgeDuplicates deletes every duplicate but the oldest copy of each
// name and returns how many objects were removed. Individual delete
// failures are logged and skipped; cleanup is best-effort.
func (s *MaintenanceService) PurgeDuplicates(ctx context.Context) (int, error) {
	duplicates, err := s.FindDuplicates(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, members := range duplicates {
		sort.Slice(members, func(i, j int) bool {
			return members[i].LastModified.Before(members[j].LastModified)
		})
		for _, object := range members[1:] {
			if err := s.store.DeleteObject(ctx, object.Key); err != nil {
				s.log.Warn("Failed to delete duplicate", "key", object.Key, "error", err)
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}
