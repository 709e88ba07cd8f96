package safezones

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/geo"
	"github.com/BearBump/CareTrack/internal/models"
)

type Repository interface {
	InsertZone(ctx context.Context, z *models.SafeZone) error
	GetZone(ctx context.Context, zoneID string) (*models.SafeZone, error)
	UpdateZone(ctx context.Context, zoneID string, upd models.SafeZoneUpdate) error
	SetZoneActive(ctx context.Context, zoneID string, active bool) error
	DeleteZone(ctx context.Context, zoneID string) error
	ActiveZones(ctx context.Context, patientID string) ([]*models.SafeZone, error)
	ZonesForPatient(ctx context.Context, patientID string) ([]*models.SafeZone, error)
}

// Service owns safe-zone CRUD. Changes become visible on the next
// evaluation cycle; past alerts are never rewritten.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, patientID, name string, centerLat, centerLon, radiusMeters float64) (*models.SafeZone, error) {
	if patientID == "" {
		return nil, errors.New("patientId is required")
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	if radiusMeters <= 0 {
		return nil, errors.Wrapf(models.ErrInvalidRadius, "%f", radiusMeters)
	}
	if !geo.ValidCoordinate(centerLat, centerLon) {
		return nil, errors.Wrapf(models.ErrInvalidCoordinate, "(%f, %f)", centerLat, centerLon)
	}

	now := time.Now().UTC()
	z := &models.SafeZone{
		ID:              uuid.NewString(),
		PatientID:       patientID,
		Name:            name,
		CenterLatitude:  centerLat,
		CenterLongitude: centerLon,
		RadiusMeters:    radiusMeters,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertZone(ctx, z); err != nil {
		return nil, err
	}
	return z, nil
}

func (s *Service) Update(ctx context.Context, zoneID string, upd models.SafeZoneUpdate) (*models.SafeZone, error) {
	if upd.RadiusMeters != nil && *upd.RadiusMeters <= 0 {
		return nil, errors.Wrapf(models.ErrInvalidRadius, "%f", *upd.RadiusMeters)
	}
	if upd.CenterLatitude != nil || upd.CenterLongitude != nil {
		cur, err := s.repo.GetZone(ctx, zoneID)
		if err != nil {
			return nil, err
		}
		lat, lon := cur.CenterLatitude, cur.CenterLongitude
		if upd.CenterLatitude != nil {
			lat = *upd.CenterLatitude
		}
		if upd.CenterLongitude != nil {
			lon = *upd.CenterLongitude
		}
		if !geo.ValidCoordinate(lat, lon) {
			return nil, errors.Wrapf(models.ErrInvalidCoordinate, "(%f, %f)", lat, lon)
		}
	}

	if err := s.repo.UpdateZone(ctx, zoneID, upd); err != nil {
		return nil, err
	}
	return s.repo.GetZone(ctx, zoneID)
}

func (s *Service) SetActive(ctx context.Context, zoneID string, active bool) error {
	return s.repo.SetZoneActive(ctx, zoneID, active)
}

func (s *Service) Delete(ctx context.Context, zoneID string) error {
	return s.repo.DeleteZone(ctx, zoneID)
}

func (s *Service) Get(ctx context.Context, zoneID string) (*models.SafeZone, error) {
	return s.repo.GetZone(ctx, zoneID)
}

// ActiveZonesFor returns the zones the next evaluation cycle will use.
// Order is not significant.
func (s *Service) ActiveZonesFor(ctx context.Context, patientID string) ([]*models.SafeZone, error) {
	return s.repo.ActiveZones(ctx, patientID)
}

func (s *Service) ZonesFor(ctx context.Context, patientID string) ([]*models.SafeZone, error) {
	return s.repo.ZonesForPatient(ctx, patientID)
}
