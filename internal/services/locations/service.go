package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/cache"
	"github.com/BearBump/CareTrack/internal/geo"
	"github.com/BearBump/CareTrack/internal/models"
)

type Repository interface {
	InsertFix(ctx context.Context, fix *models.Fix) error
	LatestFix(ctx context.Context, patientID string) (*models.Fix, error)
	FixRange(ctx context.Context, patientID string, start, end time.Time, limit, offset int) ([]*models.Fix, error)
}

// Service is the append-only per-patient fix store. Durability is the
// repository's job; the service adds validation and the latest-fix cache.
type Service struct {
	repo      Repository
	cache     cache.BytesCache
	latestTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, latestTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, latestTTL: latestTTL}
}

func (s *Service) Append(ctx context.Context, fix *models.Fix) error {
	if fix.PatientID == "" {
		return errors.New("patientId is required")
	}
	if !geo.ValidCoordinate(fix.Latitude, fix.Longitude) {
		return errors.Wrapf(models.ErrInvalidCoordinate, "(%f, %f)", fix.Latitude, fix.Longitude)
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now().UTC()
	}
	if fix.Source == "" {
		fix.Source = models.FixSourceManual
	}

	if err := s.repo.InsertFix(ctx, fix); err != nil {
		return err
	}

	// Cache is best-effort: a miss just means a DB round trip on Latest.
	if s.cache != nil && s.latestTTL > 0 {
		s.cacheLatest(ctx, fix)
	}
	return nil
}

// cacheLatest keeps the cached entry monotonic: an out-of-order append with
// an older timestamp must not shadow the true latest fix until TTL expiry.
func (s *Service) cacheLatest(ctx context.Context, fix *models.Fix) {
	if b, ok, err := s.cache.Get(ctx, latestKey(fix.PatientID)); err == nil && ok {
		var cached models.Fix
		if json.Unmarshal(b, &cached) == nil && cached.Timestamp.After(fix.Timestamp) {
			return
		}
	}
	b, _ := json.Marshal(fix)
	_ = s.cache.Set(ctx, latestKey(fix.PatientID), b, s.latestTTL)
}

func (s *Service) Latest(ctx context.Context, patientID string) (*models.Fix, error) {
	if s.cache != nil && s.latestTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, latestKey(patientID)); err == nil && ok {
			var f models.Fix
			if json.Unmarshal(b, &f) == nil {
				return &f, nil
			}
		}
	}

	f, err := s.repo.LatestFix(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.latestTTL > 0 {
		b, _ := json.Marshal(f)
		_ = s.cache.Set(ctx, latestKey(patientID), b, s.latestTTL)
	}
	return f, nil
}

const rangePageSize = 200

// Range yields the patient's fixes within [start, end], timestamp ascending.
// The sequence is lazy (pages are fetched as consumed) and restartable:
// ranging over it again re-issues the queries from the start.
func (s *Service) Range(ctx context.Context, patientID string, start, end time.Time) iter.Seq2[*models.Fix, error] {
	return func(yield func(*models.Fix, error) bool) {
		offset := 0
		for {
			page, err := s.repo.FixRange(ctx, patientID, start, end, rangePageSize, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, f := range page {
				if !yield(f, nil) {
					return
				}
			}
			if len(page) < rangePageSize {
				return
			}
			offset += len(page)
		}
	}
}

// History is the paginated REST-facing variant of Range.
func (s *Service) History(ctx context.Context, patientID string, start, end time.Time, limit, offset int) ([]*models.Fix, error) {
	return s.repo.FixRange(ctx, patientID, start, end, limit, offset)
}

func latestKey(patientID string) string {
	return fmt.Sprintf("location:%s:latest", patientID)
}
