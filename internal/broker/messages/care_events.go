package messages

import (
	"time"

	"github.com/BearBump/CareTrack/internal/models"
)

// Flat, versionless JSON records shared by the hub topics and the kafka
// feed. Field set mirrors the domain models.

type LocationUpdated struct {
	PatientID string    `json:"patient_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

const (
	AlertEventRaised       = "RAISED"
	AlertEventAcknowledged = "ACKNOWLEDGED"
)

type AlertEvent struct {
	Event string      `json:"event"`
	Alert AlertRecord `json:"alert"`
}

type AlertRecord struct {
	ID        string  `json:"id"`
	PatientID string  `json:"patient_id"`
	ZoneID    *string `json:"zone_id,omitempty"`
	Kind      string  `json:"kind"`
	Message   string  `json:"message"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	TriggeredAt time.Time `json:"triggered_at"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
}

// FixReceived is the inbound device-fix record on the care.location.fix
// kafka topic.
type FixReceived struct {
	PatientID string    `json:"patient_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

func FromFix(f *models.Fix) LocationUpdated {
	return LocationUpdated{
		PatientID: f.PatientID,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Timestamp: f.Timestamp,
		Source:    f.Source,
	}
}

func FromAlert(a *models.Alert) AlertRecord {
	return AlertRecord{
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
