package careapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CareTrack/internal/auth"
	"github.com/BearBump/CareTrack/internal/models"
)

type patientResponse struct {
	ID          string    `json:"id"`
	ShareableID string    `json:"shareable_id,omitempty"`
	FullName    string    `json:"full_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPatientResponse(p *models.Patient, includeShareable bool) patientResponse {
	out := patientResponse{ID: p.ID, FullName: p.FullName, CreatedAt: p.CreatedAt}
	if includeShareable {
		out.ShareableID = p.ShareableID
	}
	return out
}

func (a *API) createPatient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
	}
	if err := decode(r, &req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := a.patients.Register(r.Context(), req.FullName)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toPatientResponse(p, true))
}

func (a *API) getPatient(w http.ResponseWriter, r *http.Request) {
	p, err := a.patients.Get(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	// The shareable id is only returned at registration time.
	a.writeJSON(w, http.StatusOK, toPatientResponse(p, false))
}

func (a *API) linkPatient(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var req struct {
		ShareableID string `json:"shareable_id"`
	}
	if err := decode(r, &req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := a.patients.LinkByShareableID(r.Context(), id.UserID, req.ShareableID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toPatientResponse(p, false))
}

func (a *API) listLinkedPatients(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	ps, err := a.patients.LinkedPatients(r.Context(), id.UserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]patientResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPatientResponse(p, false))
	}
	a.writeJSON(w, http.StatusOK, out)
}

type fixRequest struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

type fixResponse struct {
	PatientID string    `json:"patient_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

func toFixResponse(f *models.Fix) fixResponse {
	return fixResponse{
		PatientID: f.PatientID,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Timestamp: f.Timestamp,
		Source:    f.Source,
	}
}

func (a *API) ingestFix(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if err := decode(r, &req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	fix := &models.Fix{
		PatientID: chi.URLParam(r, "patientID"),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: req.Timestamp,
		Source:    req.Source,
	}
	if err := a.ingest.Ingest(r.Context(), fix); err != nil {
		// The fix may be stored even when alert recording failed; report
		// it as accepted-with-errors rather than a client failure.
		if errors.Is(err, models.ErrAlertRecordingFailed) {
			a.writeJSON(w, http.StatusAccepted, toFixResponse(fix))
			return
		}
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, toFixResponse(fix))
}

func (a *API) latestFix(w http.ResponseWriter, r *http.Request) {
	f, err := a.locations.Latest(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toFixResponse(f))
}

func (a *API) locationHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseTimeParam(q.Get("start"), time.Time{})
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad start"})
		return
	}
	end, err := parseTimeParam(q.Get("end"), time.Now().UTC())
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad end"})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	fixes, err := a.locations.History(r.Context(), chi.URLParam(r, "patientID"), start, end, limit, offset)
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]fixResponse, 0, len(fixes))
	for _, f := range fixes {
		out = append(out, toFixResponse(f))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func parseTimeParam(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, s)
}

type zoneRequest struct {
	Name            string  `json:"name"`
	CenterLatitude  float64 `json:"center_latitude"`
	CenterLongitude float64 `json:"center_longitude"`
	RadiusMeters    float64 `json:"radius_meters"`
}

type zoneResponse struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	Name            string    `json:"name"`
	CenterLatitude  float64   `json:"center_latitude"`
	CenterLongitude float64   `json:"center_longitude"`
	RadiusMeters    float64   `json:"radius_meters"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toZoneResponse(z *models.SafeZone) zoneResponse {
	return zoneResponse{
		ID:              z.ID,
		PatientID:       z.PatientID,
		Name:            z.Name,
		CenterLatitude:  z.CenterLatitude,
		CenterLongitude: z.CenterLongitude,
		RadiusMeters:    z.RadiusMeters,
		Active:          z.Active,
		CreatedAt:       z.CreatedAt,
		UpdatedAt:       z.UpdatedAt,
	}
}

func (a *API) createZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := decode(r, &req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	z, err := a.zones.Create(r.Context(), chi.URLParam(r, "patientID"), req.Name, req.CenterLatitude, req.CenterLongitude, req.RadiusMeters)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toZoneResponse(z))
}

func (a *API) listZones(w http.ResponseWriter, r *http.Request) {
	zs, err := a.zones.ZonesFor(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]zoneResponse, 0, len(zs))
	for _, z := range zs {
		out = append(out, toZoneResponse(z))
	}
	a.writeJSON(w, http.StatusOK, out)
}

// zoneAccess resolves the zone and checks the caller may touch its patient.
func (a *API) zoneAccess(w http.ResponseWriter, r *http.Request) (*models.SafeZone, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return nil, false
	}
	z, err := a.zones.Get(r.Context(), chi.URLParam(r, "zoneID"))
	if err != nil {
		a.writeError(w, err)
		return nil, false
	}
	if err := a.access.CanAccessPatient(r.Context(), id, z.PatientID); err != nil {
		a.writeError(w, err)
		return nil, false
	}
	return z, true
}

func (a *API) updateZone(w http.ResponseWriter, r *http.Request) {
	z, ok := a.zoneAccess(w, r)
	if !ok {
		return
	}
	var req struct {
		Name            *string  `json:"name"`
		CenterLatitude  *float64 `json:"center_latitude"`
		CenterLongitude *float64 `json:"center_longitude"`
		RadiusMeters    *float64 `json:"radius_meters"`
	}
	if err := decode(r, &req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	updated, err := a.zones.Update(r.Context(), z.ID, models.SafeZoneUpdate{
		Name:            req.Name,
		CenterLatitude:  req.CenterLatitude,
		CenterLongitude: req.CenterLongitude,
		RadiusMeters:    req.RadiusMeters,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toZoneResponse(updated))
}

func (a *API) setZoneActive(w http.ResponseWriter, r *http.Request) {
	z, ok := a.zoneAccess(w, r)
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := decode(r, &req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := a.zones.SetActive(r.Context(), z.ID, req.Active); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) deleteZone(w http.ResponseWriter, r *http.Request) {
	z, ok := a.zoneAccess(w, r)
	if !ok {
		return
	}
	if err := a.zones.Delete(r.Context(), z.ID); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusNoContent, nil)
}

type alertResponse struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	ZoneID         *string    `json:"zone_id,omitempty"`
	Kind           string     `json:"kind"`
	Message        string     `json:"message"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
}

func toAlertResponse(a *models.Alert) alertResponse {
	return alertResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		ZoneID:         a.ZoneID,
		Kind:           a.Kind,
		Message:        a.Message,
		Latitude:       a.Latitude,
		Longitude:      a.Longitude,
		TriggeredAt:    a.TriggeredAt,
		Acknowledged:   a.Acknowledged,
		AcknowledgedAt: a.AcknowledgedAt,
		AcknowledgedBy: a.AcknowledgedBy,
	}
}

func (a *API) triggerEmergency(w http.ResponseWriter, r *http.Request) {
	alert, err := a.alerts.RecordEmergency(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toAlertResponse(alert))
}

func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	var (
		alerts []*models.Alert
		err    error
	)
	if r.URL.Query().Get("unacknowledged") == "true" {
		alerts, err = a.alerts.UnacknowledgedFor(r.Context(), patientID)
	} else {
		alerts, err = a.alerts.AlertsFor(r.Context(), patientID)
	}
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]alertResponse, 0, len(alerts))
	for _, al := range alerts {
		out = append(out, toAlertResponse(al))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	alertID := chi.URLParam(r, "alertID")

	alert, err := a.alerts.Get(r.Context(), alertID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.access.CanAccessPatient(r.Context(), id, alert.PatientID); err != nil {
		a.writeError(w, err)
		return
	}

	acked, err := a.alerts.Acknowledge(r.Context(), alertID, id.UserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toAlertResponse(acked))
}
