package safezones

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/CareTrack/internal/models"
)

type fakeRepo struct {
	zones map[string]*models.SafeZone
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{zones: map[string]*models.SafeZone{}}
}

func (f *fakeRepo) InsertZone(ctx context.Context, z *models.SafeZone) error {
	f.zones[z.ID] = z
	return nil
}
func (f *fakeRepo) GetZone(ctx context.Context, zoneID string) (*models.SafeZone, error) {
	z, ok := f.zones[zoneID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return z, nil
}
func (f *fakeRepo) UpdateZone(ctx context.Context, zoneID string, upd models.SafeZoneUpdate) error {
	z, ok := f.zones[zoneID]
	if !ok {
		return models.ErrNotFound
	}
	if upd.Name != nil {
		z.Name = *upd.Name
	}
	if upd.CenterLatitude != nil {
		z.CenterLatitude = *upd.CenterLatitude
	}
	if upd.CenterLongitude != nil {
		z.CenterLongitude = *upd.CenterLongitude
	}
	if upd.RadiusMeters != nil {
		z.RadiusMeters = *upd.RadiusMeters
	}
	return nil
}
func (f *fakeRepo) SetZoneActive(ctx context.Context, zoneID string, active bool) error {
	z, ok := f.zones[zoneID]
	if !ok {
		return models.ErrNotFound
	}
	z.Active = active
	return nil
}
func (f *fakeRepo) DeleteZone(ctx context.Context, zoneID string) error {
	if _, ok := f.zones[zoneID]; !ok {
		return models.ErrNotFound
	}
	delete(f.zones, zoneID)
	return nil
}
func (f *fakeRepo) ActiveZones(ctx context.Context, patientID string) ([]*models.SafeZone, error) {
	var out []*models.SafeZone
	for _, z := range f.zones {
		if z.PatientID == patientID && z.Active {
			out = append(out, z)
		}
	}
	return out, nil
}
func (f *fakeRepo) ZonesForPatient(ctx context.Context, patientID string) ([]*models.SafeZone, error) {
	var out []*models.SafeZone
	for _, z := range f.zones {
		if z.PatientID == patientID {
			out = append(out, z)
		}
	}
	return out, nil
}

func TestService_Create_validates(t *testing.T) {
	s := New(newFakeRepo())

	_, err := s.Create(context.Background(), "p1", "Home", 37, -122, 0)
	require.ErrorIs(t, err, models.ErrInvalidRadius)

	_, err = s.Create(context.Background(), "p1", "Home", 37, -122, -10)
	require.ErrorIs(t, err, models.ErrInvalidRadius)

	_, err = s.Create(context.Background(), "p1", "Home", 95, -122, 100)
	require.ErrorIs(t, err, models.ErrInvalidCoordinate)

	_, err = s.Create(context.Background(), "p1", "", 37, -122, 100)
	require.Error(t, err)
}

func TestService_Create_activeByDefault(t *testing.T) {
	s := New(newFakeRepo())

	z, err := s.Create(context.Background(), "p1", "Home", 37, -122, 500)
	require.NoError(t, err)
	require.True(t, z.Active)
	require.NotEmpty(t, z.ID)
}

func TestService_Update_unknownZone(t *testing.T) {
	s := New(newFakeRepo())

	name := "X"
	_, err := s.Update(context.Background(), "missing", models.SafeZoneUpdate{Name: &name})
	require.ErrorIs(t, err, models.ErrNotFound)

	require.ErrorIs(t, s.SetActive(context.Background(), "missing", false), models.ErrNotFound)
	require.ErrorIs(t, s.Delete(context.Background(), "missing"), models.ErrNotFound)
}

func TestService_Update_rejectsBadRadius(t *testing.T) {
	r := newFakeRepo()
	s := New(r)

	z, err := s.Create(context.Background(), "p1", "Home", 37, -122, 500)
	require.NoError(t, err)

	bad := -1.0
	_, err = s.Update(context.Background(), z.ID, models.SafeZoneUpdate{RadiusMeters: &bad})
	require.ErrorIs(t, err, models.ErrInvalidRadius)
	require.InDelta(t, 500.0, r.zones[z.ID].RadiusMeters, 1e-9)
}

func TestService_ActiveZonesFor_respectsToggle(t *testing.T) {
	s := New(newFakeRepo())

	z1, err := s.Create(context.Background(), "p1", "Home", 37, -122, 500)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), "p1", "Park", 37.1, -122.1, 300)
	require.NoError(t, err)

	require.NoError(t, s.SetActive(context.Background(), z1.ID, false))

	active, err := s.ActiveZonesFor(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Park", active[0].Name)
}
