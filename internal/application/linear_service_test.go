package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinearHarness(backend *fakeBackend, selected string) (*LinearService, *fakeClock) {
	values := map[string]string{}
	if selected != "" {
		values[SelectedWorkspaceKey] = selected
	}
	clock := newFakeClock()
	resolver := newResolver(newMemoryStore(values), backend)
	return NewLinearService(backend, resolver, clock, time.Minute, nil), clock
}

func TestLinearFetchMetadataCachesPerWorkspace(t *testing.T) {
	backend := &fakeBackend{}
	service, clock := newLinearHarness(backend, "ws-1")
	ctx := context.Background()

	first, err := service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkspaceID("ws-1"), first.WorkspaceID)
	assert.Equal(t, clock.Now().Add(time.Minute), first.ExpiresAt)
	require.Len(t, first.Teams, 1)

	_, err = service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.linearCalls.Load())

	_, err = service.FetchMetadata(ctx, FetchLinearMetadataQuery{WorkspaceID: "ws-2"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.linearCalls.Load())

	_, err = service.FetchMetadata(ctx, FetchLinearMetadataQuery{Force: true})
	require.NoError(t, err)
	assert.Equal(t, int32(3), backend.linearCalls.Load())

	clock.Advance(time.Minute)
	_, err = service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	require.NoError(t, err)
	assert.Equal(t, int32(4), backend.linearCalls.Load())
}

func TestLinearFetchMetadataFailureIsNotCached(t *testing.T) {
	calls := 0
	backend := &fakeBackend{linear: func(domain.WorkspaceID) (domain.LinearMetadata, error) {
		calls++
		if calls == 1 {
			return domain.LinearMetadata{}, &domain.UpstreamError{Service: "backend", StatusCode: 502}
		}
		return domain.LinearMetadata{Teams: []domain.LinearTeam{{ID: "team-2"}}}, nil
	}}
	service, _ := newLinearHarness(backend, "ws-1")

	_, err := service.FetchMetadata(context.Background(), FetchLinearMetadataQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	result, err := service.FetchMetadata(context.Background(), FetchLinearMetadataQuery{})
	require.NoError(t, err)
	assert.Equal(t, "team-2", result.Teams[0].ID)
}

func TestLinearRequiresWorkspace(t *testing.T) {
	backend := &fakeBackend{}
	service, _ := newLinearHarness(backend, "")
	ctx := context.Background()

	_, err := service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	assert.ErrorIs(t, err, domain.ErrNoWorkspaceSelected)

	_, err = service.CheckStatus(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNoWorkspaceSelected)

	_, err = service.CreateIssue(ctx, CreateLinearIssueCommand{Input: domain.LinearIssueInput{Title: "Bug", TeamID: "team-1"}})
	assert.ErrorIs(t, err, domain.ErrNoWorkspaceSelected)
	assert.Zero(t, backend.linearCalls.Load())
}

func TestLinearUpdatePreferenceRefetches(t *testing.T) {
	backend := &fakeBackend{}
	service, _ := newLinearHarness(backend, "ws-1")
	ctx := context.Background()

	_, err := service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	require.NoError(t, err)

	result, err := service.UpdatePreference(ctx, UpdateLinearPreferenceCommand{Preference: domain.LinearPreference{TeamID: "team-1"}})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkspaceID("ws-1"), result.WorkspaceID)
	assert.Equal(t, "UpdateLinearPreference", backend.lastCalled.Load())
	assert.Equal(t, int32(2), backend.linearCalls.Load())
}

func TestLinearUpdatePreferenceFailureKeepsCache(t *testing.T) {
	backend := &fakeBackend{}
	service, _ := newLinearHarness(backend, "ws-1")
	ctx := context.Background()

	_, err := service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	require.NoError(t, err)

	backend.mutateErr = errors.New("rejected")
	_, err = service.UpdatePreference(ctx, UpdateLinearPreferenceCommand{})
	require.EqualError(t, err, "rejected")

	_, err = service.FetchMetadata(ctx, FetchLinearMetadataQuery{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.linearCalls.Load())
}

func TestLinearCreateIssueValidatesInput(t *testing.T) {
	service, _ := newLinearHarness(&fakeBackend{}, "ws-1")

	tests := []struct {
		name  string
		input domain.LinearIssueInput
	}{
		{name: "blank title", input: domain.LinearIssueInput{Title: "   ", TeamID: "team-1"}},
		{name: "missing team", input: domain.LinearIssueInput{Title: "Bug"}},
		{name: "priority too high", input: domain.LinearIssueInput{Title: "Bug", TeamID: "team-1", Priority: 5}},
		{name: "negative priority", input: domain.LinearIssueInput{Title: "Bug", TeamID: "team-1", Priority: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateIssue(context.Background(), CreateLinearIssueCommand{Input: tt.input})
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestLinearCreateIssueTrimsTitle(t *testing.T) {
	var got domain.LinearIssueInput
	backend := &fakeBackend{issue: func(input domain.LinearIssueInput) (domain.LinearIssue, error) {
		got = input
		return domain.LinearIssue{ID: "issue-9", Identifier: "ENG-9", Title: input.Title}, nil
	}}
	service, _ := newLinearHarness(backend, "ws-1")

	issue, err := service.CreateIssue(context.Background(), CreateLinearIssueCommand{Input: domain.LinearIssueInput{Title: "  Broken hero  ", TeamID: "team-1", Priority: 2}})
	require.NoError(t, err)
	assert.Equal(t, "ENG-9", issue.Identifier)
	assert.Equal(t, "Broken hero", got.Title)
	assert.Equal(t, 2, got.Priority)
}

func TestLinearCheckStatus(t *testing.T) {
	service, _ := newLinearHarness(&fakeBackend{}, "ws-1")

	status, err := service.CheckStatus(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "acme", status.Organization)
}
