package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"courier-lab/errors"
	"courier-lab/infrastructure/storage"
)

type IAdminService interface {
	IsAdmin(handle string) bool
	Add(handle string) error
	Remove(handle string) error
	List() ([]string, error)
}

// AdminService gates submissions and operator controls on a flat
// allow-list: permanent admins from config plus a dynamic Badger-backed
// set. Permanent admins cannot be removed at runtime.
type AdminService struct {
	repository storage.IAdminRepository
	permanent  map[string]struct{}
}

func NewAdminService(repository storage.IAdminRepository, permanent []string) *AdminService {
	set := make(map[string]struct{}, len(permanent))
	for _, handle := range permanent {
		set[NormalizeHandle(handle)] = struct{}{}
	}
	return &AdminService{repository: repository, permanent: set}
}

// NormalizeHandle canonicalizes a user handle: trimmed, lowercased, and
// prefixed with "@" unless it is a bare numeric id.
func NormalizeHandle(handle string) string {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return handle
	}
	if strings.HasPrefix(handle, "@") || isDigits(handle) {
		return handle
	}
	return "@" + handle
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func (s *AdminService) IsAdmin(handle string) bool {
	normalized := NormalizeHandle(handle)
	if normalized == "" {
		return false
	}
	if _, ok := s.permanent[normalized]; ok {
		return true
	}
	exists, err := s.repository.Exists(normalized)
	if err != nil {
		return false
	}
	return exists
}

func (s *AdminService) Add(handle string) error {
	normalized := NormalizeHandle(handle)
	if _, ok := s.permanent[normalized]; ok {
		return errors.ErrAdminExists
	}
	return s.repository.Add(normalized)
}

func (s *AdminService) Remove(handle string) error {
	normalized := NormalizeHandle(handle)
	if _, ok := s.permanent[normalized]; ok {
		return errors.ErrPermanentAdmin
	}
	return s.repository.Remove(normalized)
}

// List returns permanent and dynamic admins, deduplicated and sorted.
func (s *AdminService) List() ([]string, error) {
	dynamic, err := s.repository.List()
	if err != nil {
		return nil, err
	}
	all := lo.Keys(s.permanent)
	all = append(all, dynamic...)
	all = lo.Uniq(all)
	sort.Strings(all)
	return all, nil
}
