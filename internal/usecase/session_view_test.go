package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/testutil"
)

func TestPeekSession_Execute(t *testing.T) {
	viewer := &testutil.MockSessionViewer{Output: "running tests...\nok"}

	out, err := NewPeekSession(viewer).Execute(context.Background(), PeekSessionInput{TaskID: testTaskA})

	require.NoError(t, err)
	assert.Equal(t, "running tests...\nok", out.Output)
	assert.Equal(t, []string{"task-aaaaaaaa"}, viewer.Peeked)
	assert.Equal(t, DefaultPeekLines, viewer.Lines)
}

func TestPeekSession_Execute_ShortIDAndLines(t *testing.T) {
	viewer := &testutil.MockSessionViewer{}

	_, err := NewPeekSession(viewer).Execute(context.Background(), PeekSessionInput{TaskID: "aaaaaaaa", Lines: 5})

	require.NoError(t, err)
	assert.Equal(t, []string{"task-aaaaaaaa"}, viewer.Peeked)
	assert.Equal(t, 5, viewer.Lines)
}

func TestPeekSession_Execute_Errors(t *testing.T) {
	viewer := &testutil.MockSessionViewer{PeekErr: domain.ErrNoSession}
	uc := NewPeekSession(viewer)

	_, err := uc.Execute(context.Background(), PeekSessionInput{TaskID: testTaskA})
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = uc.Execute(context.Background(), PeekSessionInput{TaskID: "a b"})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Len(t, viewer.Peeked, 1)
}

func TestAttachSession_Execute(t *testing.T) {
	viewer := &testutil.MockSessionViewer{}

	_, err := NewAttachSession(viewer).Execute(context.Background(), AttachSessionInput{TaskID: testTaskB})

	require.NoError(t, err)
	assert.Equal(t, []string{"task-bbbbbbbb"}, viewer.Attached)
}

func TestAttachSession_Execute_NoSession(t *testing.T) {
	viewer := &testutil.MockSessionViewer{AttachErr: domain.ErrNoSession}

	_, err := NewAttachSession(viewer).Execute(context.Background(), AttachSessionInput{TaskID: testTaskB})

	assert.ErrorIs(t, err, domain.ErrNoSession)
}
