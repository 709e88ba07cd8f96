package patients

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

type Repository interface {
	InsertPatient(ctx context.Context, p *models.Patient) error
	GetPatient(ctx context.Context, patientID string) (*models.Patient, error)
	PatientByShareableID(ctx context.Context, shareableID string) (*models.Patient, error)
	InsertCaretakerLink(ctx context.Context, link *models.CaretakerLink) error
	LinkedPatientIDs(ctx context.Context, caretakerID string) ([]string, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a patient and mints their shareable id. The shareable id
// is what a patient hands to a caretaker; the primary id never leaves the
// patient's own session.
func (s *Service) Register(ctx context.Context, fullName string) (*models.Patient, error) {
	if fullName == "" {
		return nil, errors.New("fullName is required")
	}
	p := &models.Patient{
		ID:          uuid.NewString(),
		ShareableID: uuid.NewString(),
		FullName:    fullName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertPatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, patientID string) (*models.Patient, error) {
	return s.repo.GetPatient(ctx, patientID)
}

// LinkByShareableID attaches a caretaker to the patient behind the shareable
// id. Linking twice is a no-op.
func (s *Service) LinkByShareableID(ctx context.Context, caretakerID, shareableID string) (*models.Patient, error) {
	p, err := s.repo.PatientByShareableID(ctx, shareableID)
	if err != nil {
		return nil, err
	}
	link := &models.CaretakerLink{
		CaretakerID: caretakerID,
		PatientID:   p.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertCaretakerLink(ctx, link); err != nil {
		return nil, err
	}
	return p, nil
}

// LinkedPatients lists the patients a caretaker watches, link order.
func (s *Service) LinkedPatients(ctx context.Context, caretakerID string) ([]*models.Patient, error) {
	ids, err := s.repo.LinkedPatientIDs(ctx, caretakerID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Patient, 0, len(ids))
	for _, id := range ids {
		p, err := s.repo.GetPatient(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
