package careapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/auth"
	"github.com/BearBump/CareTrack/internal/hub"
	"github.com/BearBump/CareTrack/internal/models"
)

type PatientService interface {
	Register(ctx context.Context, fullName string) (*models.Patient, error)
	Get(ctx context.Context, patientID string) (*models.Patient, error)
	LinkByShareableID(ctx context.Context, caretakerID, shareableID string) (*models.Patient, error)
	LinkedPatients(ctx context.Context, caretakerID string) ([]*models.Patient, error)
}

type ZoneService interface {
	Create(ctx context.Context, patientID, name string, centerLat, centerLon, radiusMeters float64) (*models.SafeZone, error)
	Update(ctx context.Context, zoneID string, upd models.SafeZoneUpdate) (*models.SafeZone, error)
	SetActive(ctx context.Context, zoneID string, active bool) error
	Delete(ctx context.Context, zoneID string) error
	Get(ctx context.Context, zoneID string) (*models.SafeZone, error)
	ZonesFor(ctx context.Context, patientID string) ([]*models.SafeZone, error)
}

type LocationService interface {
	Latest(ctx context.Context, patientID string) (*models.Fix, error)
	History(ctx context.Context, patientID string, start, end time.Time, limit, offset int) ([]*models.Fix, error)
}

type AlertService interface {
	RecordEmergency(ctx context.Context, patientID string) (*models.Alert, error)
	Acknowledge(ctx context.Context, alertID, caretakerID string) (*models.Alert, error)
	UnacknowledgedFor(ctx context.Context, patientID string) ([]*models.Alert, error)
	AlertsFor(ctx context.Context, patientID string) ([]*models.Alert, error)
	Get(ctx context.Context, alertID string) (*models.Alert, error)
}

type Ingester interface {
	Ingest(ctx context.Context, fix *models.Fix) error
}

type AccessChecker interface {
	CanAccessPatient(ctx context.Context, id auth.Identity, patientID string) error
}

type API struct {
	patients  PatientService
	zones     ZoneService
	locations LocationService
	alerts    AlertService
	ingest    Ingester
	access    AccessChecker
	hub       *hub.Hub
	log       *slog.Logger
}

func New(patients PatientService, zones ZoneService, locations LocationService, alerts AlertService, ingest Ingester, access AccessChecker, h *hub.Hub, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{
		patients:  patients,
		zones:     zones,
		locations: locations,
		alerts:    alerts,
		ingest:    ingest,
		access:    access,
		hub:       h,
		log:       log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		a.mountAuthed(r)
	})

	return r
}

func (a *API) mountAuthed(r chi.Router) {
	r.Post("/patients", a.createPatient)
	r.Get("/patients", a.listLinkedPatients)
	r.Post("/patients/link", a.linkPatient)

	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Use(a.requirePatientAccess)

		r.Get("/", a.getPatient)

		r.Post("/locations", a.ingestFix)
		r.Get("/locations/latest", a.latestFix)
		r.Get("/locations", a.locationHistory)

		r.Post("/zones", a.createZone)
		r.Get("/zones", a.listZones)

		r.Post("/emergency", a.triggerEmergency)
		r.Get("/alerts", a.listAlerts)
	})

	r.Route("/zones/{zoneID}", func(r chi.Router) {
		r.Patch("/", a.updateZone)
		r.Put("/active", a.setZoneActive)
		r.Delete("/", a.deleteZone)
	})

	r.Post("/alerts/{alertID}/ack", a.acknowledgeAlert)

	r.Get("/ws", a.serveWS)
}

// requirePatientAccess enforces the caretaker-link check on every
// patient-scoped route.
func (a *API) requirePatientAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		patientID := chi.URLParam(r, "patientID")
		if err := a.access.CanAccessPatient(r.Context(), id, patientID); err != nil {
			a.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			a.log.Error("encode response", "error", err.Error())
		}
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidCoordinate),
		errors.Is(err, models.ErrInvalidRadius):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyAcknowledged):
		status = http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable),
		errors.Is(err, models.ErrTimeout),
		errors.Is(err, models.ErrDisconnected):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "error", err.Error())
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request")
	}
	return nil
}
