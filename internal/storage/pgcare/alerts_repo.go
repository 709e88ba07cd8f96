package pgcare

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

const alertColumns = `id, patient_id, zone_id, kind, message, latitude, longitude, triggered_at, acknowledged, acknowledged_at, acknowledged_by`

func (s *Storage) InsertAlert(ctx context.Context, a *models.Alert) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO alerts (id, patient_id, zone_id, kind, message, latitude, longitude, triggered_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, a.ID, a.PatientID, a.ZoneID, a.Kind, a.Message, a.Latitude, a.Longitude, a.TriggeredAt.UTC())
	return wrapStore(err, "insert alert")
}

func (s *Storage) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	row := s.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, alertID)
	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(models.ErrNotFound, "alert")
	}
	if err != nil {
		return nil, wrapStore(err, "select alert")
	}
	return a, nil
}

// AcknowledgeAlert is the per-record synchronization point for acknowledge
// races: the conditional UPDATE commits for exactly one caller, every other
// concurrent caller sees zero rows and gets ErrAlreadyAcknowledged.
func (s *Storage) AcknowledgeAlert(ctx context.Context, alertID, caretakerID string, at time.Time) (*models.Alert, error) {
	row := s.db.QueryRow(ctx, `
UPDATE alerts
SET acknowledged = TRUE, acknowledged_at = $3, acknowledged_by = $2
WHERE id = $1 AND NOT acknowledged
RETURNING `+alertColumns, alertID, caretakerID, at.UTC())

	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the alert does not exist or someone won the race first.
		if _, getErr := s.GetAlert(ctx, alertID); getErr != nil {
			return nil, getErr
		}
		return nil, errors.Wrap(models.ErrAlreadyAcknowledged, "acknowledge")
	}
	if err != nil {
		return nil, wrapStore(err, "acknowledge alert")
	}
	return a, nil
}

// UnacknowledgedAlerts returns open alerts oldest first, so the most
// overdue one surfaces at the top.
func (s *Storage) UnacknowledgedAlerts(ctx context.Context, patientID string) ([]*models.Alert, error) {
	return s.selectAlerts(ctx, `
SELECT `+alertColumns+` FROM alerts
WHERE patient_id = $1 AND NOT acknowledged
ORDER BY triggered_at ASC, id ASC
`, patientID)
}

func (s *Storage) AlertsForPatient(ctx context.Context, patientID string) ([]*models.Alert, error) {
	return s.selectAlerts(ctx, `
SELECT `+alertColumns+` FROM alerts
WHERE patient_id = $1
ORDER BY triggered_at DESC, id DESC
`, patientID)
}

func (s *Storage) selectAlerts(ctx context.Context, q string, patientID string) ([]*models.Alert, error) {
	rows, err := s.db.Query(ctx, q, patientID)
	if err != nil {
		return nil, wrapStore(err, "select alerts")
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan alert")
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, wrapStore(rows.Err(), "rows")
	}
	return out, nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	err := row.Scan(
		&a.ID, &a.PatientID, &a.ZoneID, &a.Kind, &a.Message,
		&a.Latitude, &a.Longitude, &a.TriggeredAt,
		&a.Acknowledged, &a.AcknowledgedAt, &a.AcknowledgedBy,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
