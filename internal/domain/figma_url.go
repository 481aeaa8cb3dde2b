package domain

import (
	"fmt"
	"net/url"
	"strings"
)

var figmaFileSegments = map[string]struct{}{
	"design": {},
	"file":   {},
	"proto":  {},
	"board":  {},
}

type FrameRef struct {
	FileID string
	NodeID string
}

// CacheKey is the fileId:nodeId key shared by the render cache and in-flight map.
func (r FrameRef) CacheKey() string {
	return r.FileID + ":" + r.NodeID
}

func (r FrameRef) Validate() error {
	if strings.TrimSpace(r.FileID) == "" {
		return fmt.Errorf("%w: file id is required", ErrValidation)
	}
	if strings.TrimSpace(r.NodeID) == "" {
		return fmt.Errorf("%w: node id is required", ErrValidation)
	}
	return nil
}

// ParseFrameURL extracts the file and node ids from a design-tool share URL
// such as https://www.figma.com/design/FILE/Name?node-id=1-2.
func ParseFrameURL(raw string) (FrameRef, error) {
	if strings.TrimSpace(raw) == "" {
		return FrameRef{}, fmt.Errorf("%w: figma url is required", ErrValidation)
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return FrameRef{}, fmt.Errorf("%w: parse figma url: %v", ErrValidation, err)
	}

	var ref FrameRef
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if _, ok := figmaFileSegments[segment]; ok && i+1 < len(segments) {
			ref.FileID = segments[i+1]
			break
		}
	}
	if ref.FileID == "" {
		return FrameRef{}, fmt.Errorf("%w: figma url %q has no file id", ErrValidation, raw)
	}

	ref.NodeID = NormalizeNodeID(parsed.Query().Get("node-id"))
	if ref.NodeID == "" {
		return FrameRef{}, fmt.Errorf("%w: figma url %q has no node-id", ErrValidation, raw)
	}

	return ref, nil
}

// NormalizeNodeID turns the URL form "1-2" into the API form "1:2".
func NormalizeNodeID(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "-", ":")
}
