package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"courier-lab/errors"
)

func TestAdminRepository_AddRemoveExists(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo := NewAdminRepository(db)

	exists, err := repo.Exists("@alice")
	req.NoError(err)
	req.False(exists)

	req.NoError(repo.Add("@alice"))

	exists, err = repo.Exists("@alice")
	req.NoError(err)
	req.True(exists)

	// Double add is refused.
	req.ErrorIs(repo.Add("@alice"), errors.ErrAdminExists)

	req.NoError(repo.Remove("@alice"))
	exists, err = repo.Exists("@alice")
	req.NoError(err)
	req.False(exists)

	// Removing an unknown handle is refused.
	req.ErrorIs(repo.Remove("@alice"), errors.ErrNotAdmin)
}

func TestAdminRepository_List(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo := NewAdminRepository(db)

	handles, err := repo.List()
	req.NoError(err)
	req.Empty(handles)

	req.NoError(repo.Add("@bob"))
	req.NoError(repo.Add("@alice"))

	handles, err = repo.List()
	req.NoError(err)
	req.ElementsMatch([]string{"@alice", "@bob"}, handles)
}
