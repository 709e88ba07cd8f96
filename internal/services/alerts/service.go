package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/broker/messages"
	"github.com/BearBump/CareTrack/internal/models"
	"github.com/BearBump/CareTrack/internal/services/geofence"
)

type Repository interface {
	InsertAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, alertID string) (*models.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID, caretakerID string, at time.Time) (*models.Alert, error)
	UnacknowledgedAlerts(ctx context.Context, patientID string) ([]*models.Alert, error)
	AlertsForPatient(ctx context.Context, patientID string) ([]*models.Alert, error)
	PatientExists(ctx context.Context, patientID string) (bool, error)
	LatestFix(ctx context.Context, patientID string) (*models.Fix, error)
}

// Publisher is the slice of the hub the lifecycle needs: acknowledgments
// are broadcast, not just returned to the acknowledging caller.
type Publisher interface {
	PublishAlert(patientID string, event string, alert *models.Alert)
}

// Sink receives every created alert, whatever raised it; the kafka feed for
// downstream notifiers hangs off it. Delivery is fire-and-forget.
type Sink interface {
	PublishAlertRecord(ctx context.Context, alert *models.Alert) error
}

// Service owns the alert state machine: Unacknowledged -> Acknowledged,
// terminal. Alerts are never deleted, only transitioned.
type Service struct {
	repo Repository
	pub  Publisher
	sink Sink
}

type Option func(*Service)

func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func New(repo Repository, pub Publisher, opts ...Option) *Service {
	s := &Service{repo: repo, pub: pub}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) feed(ctx context.Context, a *models.Alert) {
	if s.sink == nil {
		return
	}
	if err := s.sink.PublishAlertRecord(ctx, a); err != nil {
		slog.Warn("forward alert record", "alert_id", a.ID, "error", err.Error())
	}
}

// RecordTransition turns an Exited transition into a zone-exit alert.
// Entered transitions are informational only and create nothing — one
// alert per departure keeps the caretaker signal-to-noise usable.
// Returns (nil, nil) when no alert is warranted.
func (s *Service) RecordTransition(ctx context.Context, fix *models.Fix, tr geofence.Transition) (*models.Alert, error) {
	if tr.Kind != geofence.Exited {
		return nil, nil
	}

	zoneID := tr.ZoneID
	a := &models.Alert{
		ID:          uuid.NewString(),
		PatientID:   fix.PatientID,
		ZoneID:      &zoneID,
		Kind:        models.AlertKindZoneExit,
		Message:     fmt.Sprintf("left safe zone %s", tr.ZoneName),
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
		TriggeredAt: fix.Timestamp,
	}
	if err := s.repo.InsertAlert(ctx, a); err != nil {
		return nil, err
	}
	s.feed(ctx, a)
	return a, nil
}

// RecordEmergency creates an emergency alert regardless of geofence state.
// The last known fix, if any, is stamped onto the alert for the map pin.
func (s *Service) RecordEmergency(ctx context.Context, patientID string) (*models.Alert, error) {
	ok, err := s.repo.PatientExists(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(models.ErrNotFound, "patient")
	}

	a := &models.Alert{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		Kind:        models.AlertKindEmergency,
		Message:     "emergency triggered",
		TriggeredAt: time.Now().UTC(),
	}
	if last, err := s.repo.LatestFix(ctx, patientID); err == nil {
		a.Latitude = last.Latitude
		a.Longitude = last.Longitude
	}

	if err := s.repo.InsertAlert(ctx, a); err != nil {
		return nil, err
	}
	s.feed(ctx, a)
	if s.pub != nil {
		s.pub.PublishAlert(patientID, messages.AlertEventRaised, a)
	}
	return a, nil
}

// Acknowledge transitions the alert to its terminal state. First caller
// wins; everyone else gets ErrAlreadyAcknowledged so race losers can tell
// they lost. The winning acknowledgment is broadcast on the patient's
// alert topic.
func (s *Service) Acknowledge(ctx context.Context, alertID, caretakerID string) (*models.Alert, error) {
	if caretakerID == "" {
		return nil, errors.New("caretakerId is required")
	}

	a, err := s.repo.AcknowledgeAlert(ctx, alertID, caretakerID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if s.pub != nil {
		s.pub.PublishAlert(a.PatientID, messages.AlertEventAcknowledged, a)
	}
	return a, nil
}

// UnacknowledgedFor returns open alerts oldest first.
func (s *Service) UnacknowledgedFor(ctx context.Context, patientID string) ([]*models.Alert, error) {
	return s.repo.UnacknowledgedAlerts(ctx, patientID)
}

// AlertsFor returns the full alert history, newest first.
func (s *Service) AlertsFor(ctx context.Context, patientID string) ([]*models.Alert, error) {
	return s.repo.AlertsForPatient(ctx, patientID)
}

func (s *Service) Get(ctx context.Context, alertID string) (*models.Alert, error) {
	return s.repo.GetAlert(ctx, alertID)
}
