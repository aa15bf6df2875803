package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"courier-lab/errors"
	"courier-lab/infrastructure/storage"
)

// memoryAdminRepo is an in-memory stand-in for the Badger-backed store.
type memoryAdminRepo struct {
	handles map[string]struct{}
}

var _ storage.IAdminRepository = (*memoryAdminRepo)(nil)

func newMemoryAdminRepo() *memoryAdminRepo {
	return &memoryAdminRepo{handles: make(map[string]struct{})}
}

func (r *memoryAdminRepo) Add(handle string) error {
	if _, ok := r.handles[handle]; ok {
		return errors.ErrAdminExists
	}
	r.handles[handle] = struct{}{}
	return nil
}

func (r *memoryAdminRepo) Remove(handle string) error {
	if _, ok := r.handles[handle]; !ok {
		return errors.ErrNotAdmin
	}
	delete(r.handles, handle)
	return nil
}

func (r *memoryAdminRepo) Exists(handle string) (bool, error) {
	_, ok := r.handles[handle]
	return ok, nil
}

func (r *memoryAdminRepo) List() ([]string, error) {
	var handles []string
	for handle := range r.handles {
		handles = append(handles, handle)
	}
	return handles, nil
}

func TestNormalizeHandle(t *testing.T) {
	req := require.New(t)

	req.Equal("@alice", NormalizeHandle("alice"))
	req.Equal("@alice", NormalizeHandle("  Alice "))
	req.Equal("@alice", NormalizeHandle("@Alice"))
	req.Equal("123456", NormalizeHandle("123456"))
	req.Equal("", NormalizeHandle("   "))
}

func TestAdminService_IsAdmin(t *testing.T) {
	req := require.New(t)
	repo := newMemoryAdminRepo()
	svc := NewAdminService(repo, []string{"Boss", "@chief"})

	t.Run("permanent admins match in any spelling", func(t *testing.T) {
		req.True(svc.IsAdmin("boss"))
		req.True(svc.IsAdmin("@BOSS"))
		req.True(svc.IsAdmin("chief"))
	})

	t.Run("dynamic admins come from the store", func(t *testing.T) {
		req.False(svc.IsAdmin("alice"))
		req.NoError(svc.Add("Alice"))
		req.True(svc.IsAdmin("@alice"))
	})

	t.Run("empty handle is never an admin", func(t *testing.T) {
		req.False(svc.IsAdmin(""))
		req.False(svc.IsAdmin("   "))
	})
}

func TestAdminService_PermanentAdminsAreProtected(t *testing.T) {
	req := require.New(t)
	repo := newMemoryAdminRepo()
	svc := NewAdminService(repo, []string{"boss"})

	// Re-adding a permanent admin is a conflict, not a second entry.
	req.ErrorIs(svc.Add("@boss"), errors.ErrAdminExists)

	// Permanent admins cannot be removed at runtime.
	req.ErrorIs(svc.Remove("boss"), errors.ErrPermanentAdmin)
}

func TestAdminService_List(t *testing.T) {
	req := require.New(t)
	repo := newMemoryAdminRepo()
	svc := NewAdminService(repo, []string{"boss"})

	req.NoError(svc.Add("zoe"))
	req.NoError(svc.Add("alice"))

	admins, err := svc.List()
	req.NoError(err)
	req.Equal([]string{"@alice", "@boss", "@zoe"}, admins)
}
