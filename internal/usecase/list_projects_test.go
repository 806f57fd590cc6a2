package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/testutil"
)

func TestListProjects_Execute(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddProject("web", t.TempDir())
	store.AddProject("gone", filepath.Join(t.TempDir(), "missing"))
	uc := NewListProjects(store, &testutil.MockRepoInspector{Branch: "main"})

	out, err := uc.Execute(context.Background(), ListProjectsInput{})

	require.NoError(t, err)
	require.Len(t, out.Projects, 2)
	assert.Equal(t, "web", out.Projects[0].ID)
	assert.True(t, out.Projects[0].PathValid)
	assert.Equal(t, "main", out.Projects[0].Branch)
	assert.Equal(t, "gone", out.Projects[1].ID)
	assert.False(t, out.Projects[1].PathValid)
	assert.Empty(t, out.Projects[1].Branch)
}

func TestListProjects_Execute_BranchUnknown(t *testing.T) {
	store := testutil.NewMockStore()
	store.AddProject("web", t.TempDir())
	uc := NewListProjects(store, &testutil.MockRepoInspector{HeadErr: errors.New("detached")})

	out, err := uc.Execute(context.Background(), ListProjectsInput{})

	require.NoError(t, err)
	assert.True(t, out.Projects[0].PathValid)
	assert.Empty(t, out.Projects[0].Branch)
}

func TestListProjects_Execute_StoreError(t *testing.T) {
	store := testutil.NewMockStore()
	store.ListErr = errors.New("locked")

	_, err := NewListProjects(store, nil).Execute(context.Background(), ListProjectsInput{})

	assert.ErrorIs(t, err, store.ListErr)
}
