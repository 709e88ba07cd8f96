package locations

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/CareTrack/internal/models"
)

type fakeRepo struct {
	fixes []*models.Fix

	insertErr error
	latestErr error
	rangeErr  error

	rangeCalls int
}

func (f *fakeRepo) InsertFix(ctx context.Context, fix *models.Fix) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.fixes = append(f.fixes, fix)
	return nil
}

func (f *fakeRepo) LatestFix(ctx context.Context, patientID string) (*models.Fix, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	var latest *models.Fix
	for _, fx := range f.fixes {
		if fx.PatientID != patientID {
			continue
		}
		if latest == nil || !fx.Timestamp.Before(latest.Timestamp) {
			latest = fx
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (f *fakeRepo) FixRange(ctx context.Context, patientID string, start, end time.Time, limit, offset int) ([]*models.Fix, error) {
	f.rangeCalls++
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	var in []*models.Fix
	for _, fx := range f.fixes {
		if fx.PatientID == patientID && !fx.Timestamp.Before(start) && !fx.Timestamp.After(end) {
			in = append(in, fx)
		}
	}
	if offset >= len(in) {
		return nil, nil
	}
	in = in[offset:]
	if len(in) > limit {
		in = in[:limit]
	}
	return in, nil
}

type fakeCache struct {
	m map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}

func TestService_Append_validatesCoordinates(t *testing.T) {
	s := New(&fakeRepo{}, nil, 0)

	err := s.Append(context.Background(), &models.Fix{PatientID: "p1", Latitude: 91, Longitude: 0})
	require.ErrorIs(t, err, models.ErrInvalidCoordinate)

	err = s.Append(context.Background(), &models.Fix{PatientID: "p1", Latitude: 0, Longitude: -181})
	require.ErrorIs(t, err, models.ErrInvalidCoordinate)

	err = s.Append(context.Background(), &models.Fix{Latitude: 0, Longitude: 0})
	require.Error(t, err)
}

func TestService_Append_updatesLatestCache(t *testing.T) {
	r := &fakeRepo{}
	c := &fakeCache{m: map[string][]byte{}}
	s := New(r, c, 10*time.Minute)

	now := time.Now().UTC()
	require.NoError(t, s.Append(context.Background(), &models.Fix{PatientID: "p1", Latitude: 37, Longitude: -122, Timestamp: now}))

	b, ok := c.m["location:p1:latest"]
	require.True(t, ok)
	var f models.Fix
	require.NoError(t, json.Unmarshal(b, &f))
	require.InDelta(t, 37.0, f.Latitude, 1e-9)
}

func TestService_Latest_cacheHitSkipsRepo(t *testing.T) {
	r := &fakeRepo{latestErr: models.ErrStoreUnavailable}
	c := &fakeCache{m: map[string][]byte{}}
	s := New(r, c, 10*time.Minute)

	want := &models.Fix{PatientID: "p1", Latitude: 1, Longitude: 2, Timestamp: time.Now().UTC()}
	b, _ := json.Marshal(want)
	c.m["location:p1:latest"] = b

	got, err := s.Latest(context.Background(), "p1")
	require.NoError(t, err)
	require.InDelta(t, 1.0, got.Latitude, 1e-9)
}

func TestService_Latest_neverReported(t *testing.T) {
	s := New(&fakeRepo{}, nil, 0)
	_, err := s.Latest(context.Background(), "p1")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_Latest_alwaysMaxTimestamp(t *testing.T) {
	r := &fakeRepo{}
	s := New(r, nil, 0)

	base := time.Now().UTC()
	// Out-of-order appends: latest must still be the max-timestamp fix.
	for _, d := range []time.Duration{3 * time.Second, time.Second, 5 * time.Second, 2 * time.Second} {
		require.NoError(t, s.Append(context.Background(), &models.Fix{
			PatientID: "p1", Latitude: 1, Longitude: 1, Timestamp: base.Add(d),
		}))
	}

	got, err := s.Latest(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, base.Add(5*time.Second), got.Timestamp)
}

func TestService_Latest_cachedEntryStaysMonotonic(t *testing.T) {
	r := &fakeRepo{}
	c := &fakeCache{m: map[string][]byte{}}
	s := New(r, c, 10*time.Minute)

	base := time.Now().UTC()
	require.NoError(t, s.Append(context.Background(), &models.Fix{
		PatientID: "p1", Latitude: 5, Longitude: 5, Timestamp: base.Add(5 * time.Second),
	}))
	// Out-of-order append with an older timestamp must not shadow the
	// cached latest.
	require.NoError(t, s.Append(context.Background(), &models.Fix{
		PatientID: "p1", Latitude: 1, Longitude: 1, Timestamp: base.Add(time.Second),
	}))

	got, err := s.Latest(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, base.Add(5*time.Second), got.Timestamp)
	require.InDelta(t, 5.0, got.Latitude, 1e-9)

	// A genuinely newer fix still advances the cache.
	require.NoError(t, s.Append(context.Background(), &models.Fix{
		PatientID: "p1", Latitude: 7, Longitude: 7, Timestamp: base.Add(7 * time.Second),
	}))
	got, err = s.Latest(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, base.Add(7*time.Second), got.Timestamp)
}

func TestService_Range_lazyAndRestartable(t *testing.T) {
	r := &fakeRepo{}
	s := New(r, nil, 0)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		r.fixes = append(r.fixes, &models.Fix{PatientID: "p1", Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	collect := func() []*models.Fix {
		var out []*models.Fix
		for f, err := range s.Range(context.Background(), "p1", base, base.Add(time.Minute)) {
			require.NoError(t, err)
			out = append(out, f)
		}
		return out
	}

	first := collect()
	require.Len(t, first, 5)
	for i := 1; i < len(first); i++ {
		require.True(t, !first[i].Timestamp.Before(first[i-1].Timestamp))
	}

	// Restartable: a second pass yields the same sequence again.
	second := collect()
	require.Len(t, second, 5)
}

func TestService_Range_propagatesError(t *testing.T) {
	r := &fakeRepo{rangeErr: models.ErrStoreUnavailable}
	s := New(r, nil, 0)

	var got error
	for _, err := range s.Range(context.Background(), "p1", time.Time{}, time.Now()) {
		got = err
		break
	}
	require.ErrorIs(t, got, models.ErrStoreUnavailable)
}
