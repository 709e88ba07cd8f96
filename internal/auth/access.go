package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/models"
)

type LinkRepository interface {
	HasCaretakerLink(ctx context.Context, caretakerID, patientID string) (bool, error)
}

// Access answers "may this identity touch this patient". Patients may touch
// themselves; caretakers need a confirmed link.
type Access struct {
	links LinkRepository
}

func NewAccess(links LinkRepository) *Access {
	return &Access{links: links}
}

func (a *Access) CanAccessPatient(ctx context.Context, id Identity, patientID string) error {
	if id.Role == models.RolePatient {
		if id.UserID == patientID {
			return nil
		}
		return errors.Wrap(models.ErrNotFound, "patient")
	}

	ok, err := a.links.HasCaretakerLink(ctx, id.UserID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		// A 404 rather than 403: do not leak which patient ids exist.
		return errors.Wrap(models.ErrNotFound, "patient")
	}
	return nil
}
