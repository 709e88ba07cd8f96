package pgcare

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

const zoneColumns = `id, patient_id, name, center_latitude, center_longitude, radius_meters, active, created_at, updated_at`

func (s *Storage) InsertZone(ctx context.Context, z *models.SafeZone) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO safe_zones (id, patient_id, name, center_latitude, center_longitude, radius_meters, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
`, z.ID, z.PatientID, z.Name, z.CenterLatitude, z.CenterLongitude, z.RadiusMeters, z.Active, z.CreatedAt.UTC())
	return wrapStore(err, "insert zone")
}

func (s *Storage) GetZone(ctx context.Context, zoneID string) (*models.SafeZone, error) {
	row := s.db.QueryRow(ctx, `SELECT `+zoneColumns+` FROM safe_zones WHERE id = $1`, zoneID)
	z, err := scanZone(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(models.ErrNotFound, "zone")
	}
	if err != nil {
		return nil, wrapStore(err, "select zone")
	}
	return z, nil
}

func (s *Storage) UpdateZone(ctx context.Context, zoneID string, upd models.SafeZoneUpdate) error {
	tag, err := s.db.Exec(ctx, `
UPDATE safe_zones
SET
  name = COALESCE($2, name),
  center_latitude = COALESCE($3, center_latitude),
  center_longitude = COALESCE($4, center_longitude),
  radius_meters = COALESCE($5, radius_meters),
  updated_at = now()
WHERE id = $1
`, zoneID, upd.Name, upd.CenterLatitude, upd.CenterLongitude, upd.RadiusMeters)
	if err != nil {
		return wrapStore(err, "update zone")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "zone")
	}
	return nil
}

func (s *Storage) SetZoneActive(ctx context.Context, zoneID string, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE safe_zones SET active = $2, updated_at = now() WHERE id = $1`, zoneID, active)
	if err != nil {
		return wrapStore(err, "set zone active")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "zone")
	}
	return nil
}

func (s *Storage) DeleteZone(ctx context.Context, zoneID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM safe_zones WHERE id = $1`, zoneID)
	if err != nil {
		return wrapStore(err, "delete zone")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "zone")
	}
	return nil
}

func (s *Storage) ActiveZones(ctx context.Context, patientID string) ([]*models.SafeZone, error) {
	return s.selectZones(ctx, `SELECT `+zoneColumns+` FROM safe_zones WHERE patient_id = $1 AND active`, patientID)
}

func (s *Storage) ZonesForPatient(ctx context.Context, patientID string) ([]*models.SafeZone, error) {
	return s.selectZones(ctx, `SELECT `+zoneColumns+` FROM safe_zones WHERE patient_id = $1 ORDER BY created_at`, patientID)
}

func (s *Storage) selectZones(ctx context.Context, q string, patientID string) ([]*models.SafeZone, error) {
	rows, err := s.db.Query(ctx, q, patientID)
	if err != nil {
		return nil, wrapStore(err, "select zones")
	}
	defer rows.Close()

	var out []*models.SafeZone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan zone")
		}
		out = append(out, z)
	}
	if rows.Err() != nil {
		return nil, wrapStore(rows.Err(), "rows")
	}
	return out, nil
}

func scanZone(row pgx.Row) (*models.SafeZone, error) {
	var z models.SafeZone
	err := row.Scan(
		&z.ID, &z.PatientID, &z.Name,
		&z.CenterLatitude, &z.CenterLongitude, &z.RadiusMeters,
		&z.Active, &z.CreatedAt, &z.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &z, nil
}
