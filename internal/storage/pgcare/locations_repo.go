package pgcare

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

func (s *Storage) InsertFix(ctx context.Context, fix *models.Fix) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO locations (patient_id, latitude, longitude, ts, source, created_at)
VALUES ($1,$2,$3,$4,$5, now())
`, fix.PatientID, fix.Latitude, fix.Longitude, fix.Timestamp.UTC(), fix.Source)
	return wrapStore(err, "insert fix")
}

func (s *Storage) LatestFix(ctx context.Context, patientID string) (*models.Fix, error) {
	var f models.Fix
	err := s.db.QueryRow(ctx, `
SELECT patient_id, latitude, longitude, ts, source
FROM locations
WHERE patient_id = $1
ORDER BY ts DESC, id DESC
LIMIT 1
`, patientID).Scan(&f.PatientID, &f.Latitude, &f.Longitude, &f.Timestamp, &f.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(models.ErrNotFound, "latest fix")
	}
	if err != nil {
		return nil, wrapStore(err, "select latest fix")
	}
	return &f, nil
}

// FixRange returns one page of the patient's fixes within [start, end],
// timestamp ascending, arrival order breaking ties. Callers page with
// limit/offset; the locations service turns the pages into a lazy sequence.
func (s *Storage) FixRange(ctx context.Context, patientID string, start, end time.Time, limit, offset int) ([]*models.Fix, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT patient_id, latitude, longitude, ts, source
FROM locations
WHERE patient_id = $1 AND ts >= $2 AND ts <= $3
ORDER BY ts ASC, id ASC
LIMIT $4 OFFSET $5
`, patientID, start.UTC(), end.UTC(), limit, offset)
	if err != nil {
		return nil, wrapStore(err, "select fix range")
	}
	defer rows.Close()

	var out []*models.Fix
	for rows.Next() {
		var f models.Fix
		if err := rows.Scan(&f.PatientID, &f.Latitude, &f.Longitude, &f.Timestamp, &f.Source); err != nil {
			return nil, errors.Wrap(err, "scan fix")
		}
		out = append(out, &f)
	}
	if rows.Err() != nil {
		return nil, wrapStore(rows.Err(), "rows")
	}
	return out, nil
}
