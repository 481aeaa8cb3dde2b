package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestParseFrameURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    FrameRef
		wantErr bool
	}{
		{name: "design url", raw: "https://www.figma.com/design/FILE123/Landing?node-id=9-9", want: FrameRef{FileID: "FILE123", NodeID: "9:9"}},
		{name: "legacy file url", raw: "https://www.figma.com/file/abc/Name?node-id=1%3A2", want: FrameRef{FileID: "abc", NodeID: "1:2"}},
		{name: "proto url", raw: "https://www.figma.com/proto/xyz/Flow?node-id=10-20&t=1", want: FrameRef{FileID: "xyz", NodeID: "10:20"}},
		{name: "bare host", raw: "https://tool/design/FILE123?node-id=9-9", want: FrameRef{FileID: "FILE123", NodeID: "9:9"}},
		{name: "missing node id", raw: "https://www.figma.com/design/FILE123/Landing", wantErr: true},
		{name: "missing file id", raw: "https://www.figma.com/design?node-id=1-2", wantErr: true},
		{name: "unrelated path", raw: "https://example.com/pages/1?node-id=1-2", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrameURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrameRefCacheKey(t *testing.T) {
	assert.Equal(t, "FILE123:9:9", FrameRef{FileID: "FILE123", NodeID: "9:9"}.CacheKey())
}

func TestFindNodeDepthFirstFirstMatchWins(t *testing.T) {
	root := Node{
		ID: "0:0",
		Children: []Node{
			{ID: "1:1", Name: "page", Children: []Node{
				{ID: "2:2", Name: "first"},
			}},
			{ID: "2:2", Name: "second"},
		},
	}

	found, ok := FindNode(root, "2:2")
	require.True(t, ok)
	assert.Equal(t, "first", found.Name)

	_, ok = FindNode(root, "9:9")
	assert.False(t, ok)
}

func TestOverlayElementsFiltersAndOrders(t *testing.T) {
	box := &BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}
	frame := Node{
		ID:                  "1:1",
		Type:                "FRAME",
		AbsoluteBoundingBox: box,
		Children: []Node{
			{ID: "a", Type: "GROUP", AbsoluteBoundingBox: box, Children: []Node{
				{ID: "a1", Type: "TEXT", AbsoluteBoundingBox: box},
			}},
			{ID: "hidden", Visible: boolPtr(false), AbsoluteBoundingBox: box, Children: []Node{
				{ID: "hidden-child", AbsoluteBoundingBox: box},
			}},
			{ID: "nobox", Children: []Node{
				{ID: "nobox-child", Visible: boolPtr(true), AbsoluteBoundingBox: box},
			}},
		},
	}

	elements := OverlayElements(frame)

	ids := make([]string, 0, len(elements))
	depths := make([]int, 0, len(elements))
	for _, element := range elements {
		ids = append(ids, element.ID)
		depths = append(depths, element.Depth)
	}
	assert.Equal(t, []string{"a", "a1", "nobox-child"}, ids)
	assert.Equal(t, []int{1, 2, 2}, depths)
}

func TestOverlayElementsEmptyFrame(t *testing.T) {
	elements := OverlayElements(Node{ID: "1:1"})
	assert.NotNil(t, elements)
	assert.Empty(t, elements)
}

func TestProfileActiveWorkspacesKeepsOrder(t *testing.T) {
	profile := Profile{Workspaces: []Workspace{
		{ID: "ws-pending", Status: WorkspaceStatusPending},
		{ID: "ws-b", Status: WorkspaceStatusActive},
		{ID: "ws-upper", Status: "Active"},
		{ID: "ws-a", Status: WorkspaceStatusActive},
	}}

	active := profile.ActiveWorkspaces()
	require.Len(t, active, 2)
	assert.Equal(t, WorkspaceID("ws-b"), active[0].ID)
	assert.Equal(t, WorkspaceID("ws-a"), active[1].ID)
}

func TestAccessTokenValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, AccessToken{}.Valid(now, 0))
	assert.True(t, AccessToken{Token: "t"}.Valid(now, time.Minute))
	assert.True(t, AccessToken{Token: "t", ExpiresAt: now.Add(time.Hour)}.Valid(now, time.Minute))
	assert.False(t, AccessToken{Token: "t", ExpiresAt: now.Add(10 * time.Second)}.Valid(now, 30*time.Second))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "no workspace", err: fmt.Errorf("fetch: %w", ErrNoWorkspaceSelected), want: CodeNoWorkspace},
		{name: "auth", err: ErrAuthRequired, want: CodeAuthRequired},
		{name: "validation", err: fmt.Errorf("%w: bad url", ErrValidation), want: CodeValidation},
		{name: "not found", err: ErrNotFound, want: CodeNotFound},
		{name: "cancelled", err: ErrCancelled, want: CodeCancelled},
		{name: "upstream struct", err: &UpstreamError{Service: "backend", StatusCode: 502}, want: CodeUpstream},
		{name: "other", err: errors.New("boom"), want: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Service: "figma", StatusCode: 404, Message: "File not found"}
	assert.Equal(t, "figma request failed with status 404: File not found", err.Error())
	assert.ErrorIs(t, fmt.Errorf("wrap: %w", err), ErrUpstream)
}
