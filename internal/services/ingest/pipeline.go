package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/broker/messages"
	"github.com/BearBump/CareTrack/internal/models"
	"github.com/BearBump/CareTrack/internal/services/geofence"
)

type LocationAppender interface {
	Append(ctx context.Context, fix *models.Fix) error
}

type ZoneProvider interface {
	ActiveZonesFor(ctx context.Context, patientID string) ([]*models.SafeZone, error)
}

// ContainmentStore persists the per-patient containment snapshot so that a
// restart does not re-fire alerts for patients already outside their zones.
type ContainmentStore interface {
	GetContainment(ctx context.Context, patientID string) (map[string]bool, error)
	ReplaceContainment(ctx context.Context, patientID string, state map[string]bool) error
}

type AlertRecorder interface {
	RecordTransition(ctx context.Context, fix *models.Fix, tr geofence.Transition) (*models.Alert, error)
}

type Broadcaster interface {
	PublishLocation(patientID string, fix *models.Fix)
	PublishAlert(patientID string, event string, alert *models.Alert)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type RateLimit struct {
	PerMinute int64
}

// Pipeline is the single entry point for location fixes, whatever the
// transport (REST, device kafka topic). Per patient, fixes are processed
// strictly one at a time in arrival order, so the containment state never
// sees interleaved evaluations.
type Pipeline struct {
	locations   LocationAppender
	zones       ZoneProvider
	containment ContainmentStore
	alerts      AlertRecorder
	broadcast   Broadcaster

	limiter RateLimiter
	limit   RateLimit

	log *slog.Logger

	mu    sync.Mutex
	locks map[string]*patientState
}

// patientState serializes one patient's pipeline and caches their containment
// snapshot between fixes.
type patientState struct {
	sync.Mutex
	loaded bool
	state  geofence.State
}

type Option func(*Pipeline)

// WithRateLimiter enables per-patient ingest accounting. Over-limit fixes are
// still processed; the counter exists to surface runaway devices in the logs.
func WithRateLimiter(rl RateLimiter, limit RateLimit) Option {
	return func(p *Pipeline) {
		p.limiter = rl
		p.limit = limit
	}
}

func New(locations LocationAppender, zones ZoneProvider, containment ContainmentStore, alerts AlertRecorder, broadcast Broadcaster, log *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		locations:   locations,
		zones:       zones,
		containment: containment,
		alerts:      alerts,
		broadcast:   broadcast,
		log:         log,
		locks:       map[string]*patientState{},
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) patient(patientID string) *patientState {
	p.mu.Lock()
	defer p.mu.Unlock()
	ps, ok := p.locks[patientID]
	if !ok {
		ps = &patientState{}
		p.locks[patientID] = ps
	}
	return ps
}

// Ingest runs one fix through the full chain: persist, evaluate against
// active zones, record any zone-exit alerts, broadcast. The fix is durable
// before evaluation starts; an alert-recording failure is reported as
// ErrAlertRecordingFailed but never unwinds the stored fix or the updated
// containment state.
func (p *Pipeline) Ingest(ctx context.Context, fix *models.Fix) error {
	if fix == nil {
		return errors.New("nil fix")
	}

	if p.limiter != nil && p.limit.PerMinute > 0 {
		key := fmt.Sprintf("rl:ingest:%s", fix.PatientID)
		ok, n, err := p.limiter.Allow(ctx, key, p.limit.PerMinute, time.Minute)
		if err != nil {
			p.log.Warn("ingest rate limiter unavailable", "patient_id", fix.PatientID, "error", err.Error())
		} else if !ok {
			p.log.Warn("ingest rate exceeded", "patient_id", fix.PatientID, "count", n, "limit", p.limit.PerMinute)
		}
	}

	ps := p.patient(fix.PatientID)
	ps.Lock()
	defer ps.Unlock()

	if err := p.locations.Append(ctx, fix); err != nil {
		return err
	}

	zones, err := p.zones.ActiveZonesFor(ctx, fix.PatientID)
	if err != nil {
		return err
	}

	prior, err := p.priorState(ctx, ps, fix.PatientID)
	if err != nil {
		return err
	}

	transitions, next := geofence.Evaluate(fix, zones, prior)
	ps.state = next

	// The snapshot write is best-effort: the in-memory state stays
	// authoritative for this process, and a restart re-reads whatever
	// last made it to disk.
	if err := p.containment.ReplaceContainment(ctx, fix.PatientID, next); err != nil {
		p.log.Warn("persist containment snapshot", "patient_id", fix.PatientID, "error", err.Error())
	}

	var recordErr error
	for _, tr := range transitions {
		alert, err := p.alerts.RecordTransition(ctx, fix, tr)
		if err != nil {
			p.log.Error("record zone transition alert",
				"patient_id", fix.PatientID, "zone_id", tr.ZoneID, "error", err.Error())
			recordErr = errors.Wrapf(models.ErrAlertRecordingFailed, "zone %s: %v", tr.ZoneID, err)
			continue
		}
		if alert == nil {
			continue
		}
		p.broadcast.PublishAlert(fix.PatientID, messages.AlertEventRaised, alert)
	}

	p.broadcast.PublishLocation(fix.PatientID, fix)
	return recordErr
}

// priorState returns the cached containment snapshot, loading it from the
// store on the patient's first fix since startup. Caller holds ps.
func (p *Pipeline) priorState(ctx context.Context, ps *patientState, patientID string) (geofence.State, error) {
	if ps.loaded {
		return ps.state, nil
	}
	stored, err := p.containment.GetContainment(ctx, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "load containment snapshot")
	}
	ps.state = geofence.State(stored)
	ps.loaded = true
	return ps.state, nil
}
