package core

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"github.com/gbroads/roadstatus/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// maxConcurrentSegmentLoads bounds LoadSegmentsFor
	maxConcurrentSegmentLoads = 4
	// segmentFetchTimeout bounds a shared segment fetch, which outlives any single caller
	segmentFetchTimeout = 30 * time.Second
)

// CatalogSource reads roads and segments
type CatalogSource interface {
	// Roads returns every road ordered by sort order
	Roads(ctx context.Context) ([]models.Road, error)
	// Segments returns the segments of one road ordered by sequence
	Segments(ctx context.Context, roadID int) ([]models.RoadSegment, error)
}

// CatalogState is a snapshot of the road list.
// Failed is distinct from a loaded empty catalog.
type CatalogState struct {
	Loading bool
	Loaded  bool
	Failed  bool
	Err     error
	Roads   []models.Road
}

// SegmentResult is the outcome of loading one road's segments
type SegmentResult struct {
	Segments []models.RoadSegment
	Err      error
}

// CatalogLoader loads the road list once and segments lazily, caching both for one page view
type CatalogLoader struct {
	source CatalogSource
	logger *zap.Logger

	mu       sync.Mutex
	state    CatalogState
	segments map[int][]models.RoadSegment
	inflight singleflight.Group
}

// NewCatalogLoader creates an empty loader
func NewCatalogLoader(source CatalogSource, logger *zap.Logger) *CatalogLoader {
	return &CatalogLoader{
		source:   source,
		logger:   logger,
		segments: make(map[int][]models.RoadSegment),
	}
}

// LoadRoads fetches the road list in display order
func (l *CatalogLoader) LoadRoads(ctx context.Context) CatalogState {
	l.mu.Lock()
	l.state = CatalogState{Loading: true}
	l.mu.Unlock()

	roads, err := l.source.Roads(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.logger.Error("failed to load roads", zap.Error(err))
		l.state = CatalogState{Failed: true, Err: readError(err, "couldn't load roads")}
		return l.state
	}

	slices.SortStableFunc(roads, func(a, b models.Road) int {
		return a.SortOrder - b.SortOrder
	})
	l.state = CatalogState{Loaded: true, Roads: roads}
	return l.state
}

// State returns the current road list snapshot
func (l *CatalogLoader) State() CatalogState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Road returns a loaded road by ID
func (l *CatalogLoader) Road(roadID int) (models.Road, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, road := range l.state.Roads {
		if road.ID == roadID {
			return road, true
		}
	}
	return models.Road{}, false
}

// CachedSegments returns segments loaded earlier without a request
func (l *CatalogLoader) CachedSegments(roadID int) ([]models.RoadSegment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	segments, ok := l.segments[roadID]
	return segments, ok
}

// LoadSegments returns the segments of a road in ascending sequence.
// A road is fetched at most once per loader; concurrent callers share the request
// and failures are not cached.
func (l *CatalogLoader) LoadSegments(ctx context.Context, roadID int) ([]models.RoadSegment, error) {
	if segments, ok := l.CachedSegments(roadID); ok {
		return segments, nil
	}

	ch := l.inflight.DoChan(strconv.Itoa(roadID), func() (any, error) {
		// The fetch is shared, so one caller going away must not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), segmentFetchTimeout)
		defer cancel()

		if segments, ok := l.CachedSegments(roadID); ok {
			return segments, nil
		}

		segments, err := l.source.Segments(fetchCtx, roadID)
		if err != nil {
			l.logger.Error("failed to load road segments", zap.Int("road_id", roadID), zap.Error(err))
			return nil, readError(err, "couldn't load road details")
		}

		segments = slices.Clone(segments)
		slices.SortStableFunc(segments, func(a, b models.RoadSegment) int {
			return a.Sequence - b.Sequence
		})

		l.mu.Lock()
		l.segments[roadID] = segments
		l.mu.Unlock()
		return segments, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.RoadSegment), nil
	case <-ctx.Done():
		return nil, readError(ctx.Err(), "couldn't load road details")
	}
}

// LoadSegmentsFor loads several roads concurrently; one road failing does not affect the others
func (l *CatalogLoader) LoadSegmentsFor(ctx context.Context, roadIDs []int) map[int]SegmentResult {
	var (
		mu      sync.Mutex
		results = make(map[int]SegmentResult, len(roadIDs))
		g       errgroup.Group
	)
	g.SetLimit(maxConcurrentSegmentLoads)

	for _, roadID := range roadIDs {
		g.Go(func() error {
			segments, err := l.LoadSegments(ctx, roadID)
			mu.Lock()
			results[roadID] = SegmentResult{Segments: segments, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// readError keeps timeouts distinct and reports every other read failure as ReadFailed
func readError(err error, message string) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindTimeout, apperrors.KindAuthRequired:
		return err
	default:
		return apperrors.Wrap(apperrors.KindRead, message, err)
	}
}

// writeError keeps timeouts and rejections distinct and reports every other write failure as WriteFailed
func writeError(err error, message string) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindTimeout, apperrors.KindAuthRequired, apperrors.KindForbidden, apperrors.KindValidation:
		return err
	default:
		return apperrors.Wrap(apperrors.KindWrite, message, err)
	}
}
