package pgcare

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

func (s *Storage) InsertPatient(ctx context.Context, p *models.Patient) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO patients (id, shareable_id, full_name, created_at)
VALUES ($1,$2,$3,$4)
`, p.ID, p.ShareableID, p.FullName, p.CreatedAt.UTC())
	return wrapStore(err, "insert patient")
}

func (s *Storage) GetPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	return s.selectPatient(ctx, `SELECT id, shareable_id, full_name, created_at FROM patients WHERE id = $1`, patientID)
}

func (s *Storage) PatientByShareableID(ctx context.Context, shareableID string) (*models.Patient, error) {
	return s.selectPatient(ctx, `SELECT id, shareable_id, full_name, created_at FROM patients WHERE shareable_id = $1`, shareableID)
}

func (s *Storage) selectPatient(ctx context.Context, q, arg string) (*models.Patient, error) {
	var p models.Patient
	err := s.db.QueryRow(ctx, q, arg).Scan(&p.ID, &p.ShareableID, &p.FullName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(models.ErrNotFound, "patient")
	}
	if err != nil {
		return nil, wrapStore(err, "select patient")
	}
	return &p, nil
}

func (s *Storage) PatientExists(ctx context.Context, patientID string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM patients WHERE id = $1`, patientID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapStore(err, "patient exists")
	}
	return true, nil
}

func (s *Storage) InsertCaretakerLink(ctx context.Context, link *models.CaretakerLink) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO caretaker_links (caretaker_id, patient_id, created_at)
VALUES ($1,$2,$3)
ON CONFLICT (caretaker_id, patient_id) DO NOTHING
`, link.CaretakerID, link.PatientID, link.CreatedAt.UTC())
	return wrapStore(err, "insert caretaker link")
}

func (s *Storage) LinkedPatientIDs(ctx context.Context, caretakerID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT patient_id FROM caretaker_links WHERE caretaker_id = $1 ORDER BY created_at`, caretakerID)
	if err != nil {
		return nil, wrapStore(err, "select links")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan link")
		}
		out = append(out, id)
	}
	if rows.Err() != nil {
		return nil, wrapStore(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) HasCaretakerLink(ctx context.Context, caretakerID, patientID string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM caretaker_links WHERE caretaker_id = $1 AND patient_id = $2`, caretakerID, patientID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapStore(err, "has link")
	}
	return true, nil
}
