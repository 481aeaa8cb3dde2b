package application

import (
	"context"
	"testing"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFigmaTokenSourceUsesResolvedWorkspace(t *testing.T) {
	backend := &fakeBackend{}
	source := NewFigmaTokenSource(backend, newResolver(newMemoryStore(map[string]string{SelectedWorkspaceKey: "ws-1"}), backend))

	token, err := source.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "figma-token", token.Token)
}

func TestFigmaTokenSourceRequiresWorkspace(t *testing.T) {
	backend := &fakeBackend{}
	source := NewFigmaTokenSource(backend, newResolver(newMemoryStore(nil), backend))

	_, err := source.AccessToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoWorkspaceSelected)
}
