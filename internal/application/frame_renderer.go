package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pixzlo/pixzlo-bridge/internal/domain"
	"github.com/pixzlo/pixzlo-bridge/internal/ports"
	"github.com/pixzlo/pixzlo-bridge/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRenderTTL = 5 * time.Minute
	renderCacheName  = "frame_render"
)

type renderEntry struct {
	result    domain.FrameRenderResult
	expiresAt time.Time
}

// FrameRenderer fetches a design node, extracts its overlay elements and
// renders it, caching the composite per fileId:nodeId. Concurrent renders of
// the same key share one upstream computation.
type FrameRenderer struct {
	api    ports.DesignAPI
	clock  ports.Clock
	ttl    time.Duration
	logger *slog.Logger

	group singleflight.Group

	mu         sync.Mutex
	cache      map[string]renderEntry
	generation uint64
}

func NewFrameRenderer(api ports.DesignAPI, clock ports.Clock, ttl time.Duration, logger *slog.Logger) *FrameRenderer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultRenderTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameRenderer{
		api:    api,
		clock:  clock,
		ttl:    ttl,
		logger: logger,
		cache:  make(map[string]renderEntry),
	}
}

func (r *FrameRenderer) RenderFrame(ctx context.Context, sourceURL string) (domain.FrameRenderResult, error) {
	ref, err := domain.ParseFrameURL(sourceURL)
	if err != nil {
		return domain.FrameRenderResult{}, err
	}
	return r.render(ctx, ref)
}

func (r *FrameRenderer) RenderNode(ctx context.Context, fileID, nodeID string) (domain.FrameRenderResult, error) {
	ref := domain.FrameRef{FileID: fileID, NodeID: domain.NormalizeNodeID(nodeID)}
	if err := ref.Validate(); err != nil {
		return domain.FrameRenderResult{}, err
	}
	return r.render(ctx, ref)
}

// RenderImage returns only the image URL of a node. It bypasses the cache.
func (r *FrameRenderer) RenderImage(ctx context.Context, fileID, nodeID string) (string, error) {
	ref := domain.FrameRef{FileID: fileID, NodeID: domain.NormalizeNodeID(nodeID)}
	if err := ref.Validate(); err != nil {
		return "", err
	}
	return r.api.RenderImage(ctx, ref.FileID, ref.NodeID)
}

// Invalidate empties the result cache. Renders already in flight finish but
// are not stored.
func (r *FrameRenderer) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]renderEntry)
	r.generation++
	r.mu.Unlock()
}

// Size reports how many entries are cached, expired ones included.
func (r *FrameRenderer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func (r *FrameRenderer) render(ctx context.Context, ref domain.FrameRef) (domain.FrameRenderResult, error) {
	key := ref.CacheKey()
	if result, ok := r.lookup(ctx, key); ok {
		return result, nil
	}

	// Renders are not aborted when a caller leaves; other waiters and the
	// cache still get the result.
	renderCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		r.mu.Lock()
		entry, ok := r.cache[key]
		generation := r.generation
		r.mu.Unlock()
		if ok && r.clock.Now().Before(entry.expiresAt) {
			return entry.result, nil
		}

		result, err := r.compute(renderCtx, ref)
		if err != nil {
			r.mu.Lock()
			delete(r.cache, key)
			r.mu.Unlock()
			return nil, err
		}

		r.mu.Lock()
		if r.generation == generation {
			r.cache[key] = renderEntry{result: result, expiresAt: r.clock.Now().Add(r.ttl)}
		}
		r.mu.Unlock()
		return result, nil
	})

	select {
	case <-ctx.Done():
		return domain.FrameRenderResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.FrameRenderResult{}, res.Err
		}
		if res.Shared {
			telemetry.RecordCacheLookup(ctx, renderCacheName, telemetry.CacheShared)
		}
		return res.Val.(domain.FrameRenderResult), nil
	}
}

func (r *FrameRenderer) lookup(ctx context.Context, key string) (domain.FrameRenderResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[key]
	if !ok {
		telemetry.RecordCacheLookup(ctx, renderCacheName, telemetry.CacheMiss)
		return domain.FrameRenderResult{}, false
	}
	if !r.clock.Now().Before(entry.expiresAt) {
		delete(r.cache, key)
		telemetry.RecordCacheLookup(ctx, renderCacheName, telemetry.CacheExpired)
		return domain.FrameRenderResult{}, false
	}

	telemetry.RecordCacheLookup(ctx, renderCacheName, telemetry.CacheHit)
	return entry.result, true
}

func (r *FrameRenderer) compute(ctx context.Context, ref domain.FrameRef) (domain.FrameRenderResult, error) {
	started := time.Now()

	file, err := r.api.GetFile(ctx, ref.FileID)
	if err != nil {
		return domain.FrameRenderResult{}, err
	}

	frame, ok := domain.FindNode(file.Document, ref.NodeID)
	if !ok {
		return domain.FrameRenderResult{}, fmt.Errorf("%w: node %s in file %s", domain.ErrNotFound, ref.NodeID, ref.FileID)
	}

	elements := domain.OverlayElements(frame)

	imageURL, err := r.api.RenderImage(ctx, ref.FileID, ref.NodeID)
	if err != nil {
		return domain.FrameRenderResult{}, err
	}

	r.logger.Debug("frame rendered", "key", ref.CacheKey(), "elements", len(elements), "duration", time.Since(started))
	return domain.FrameRenderResult{
		FileID:    ref.FileID,
		NodeID:    ref.NodeID,
		FrameData: frame,
		Elements:  elements,
		ImageURL:  imageURL,
		FileName:  file.Name,
	}, nil
}
