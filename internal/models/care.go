package models

import "time"

// Fix sources (informational only, not interpreted by the core).
const (
	FixSourceManual = "MANUAL"
	FixSourceDevice = "DEVICE"
	FixSourceKafka  = "KAFKA"
)

// Alert kinds.
const (
	AlertKindZoneExit  = "ZONE_EXIT"
	AlertKindZoneEntry = "ZONE_ENTRY"
	AlertKindEmergency = "EMERGENCY"
)

// Roles supplied by the auth collaborator.
const (
	RolePatient   = "PATIENT"
	RoleCaretaker = "CARETAKER"
)

// Patient is immutable once created. Caretakers never see the login id,
// only ShareableID.
type Patient struct {
	ID          string
	ShareableID string
	FullName    string
	CreatedAt   time.Time
}

type Fix struct {
	PatientID string
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	Source    string
}

type SafeZone struct {
	ID              string
	PatientID       string
	Name            string
	CenterLatitude  float64
	CenterLongitude float64
	RadiusMeters    float64
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SafeZoneUpdate carries the mutable fields of a zone. Nil means "keep".
type SafeZoneUpdate struct {
	Name            *string
	CenterLatitude  *float64
	CenterLongitude *float64
	RadiusMeters    *float64
}

type Alert struct {
	ID        string
	PatientID string
	ZoneID    *string
	Kind      string
	Message   string

	// Coordinates of the fix that triggered the alert (zero for an
	// emergency raised before any fix was reported).
	Latitude  float64
	Longitude float64

	TriggeredAt time.Time

	Acknowledged   bool
	AcknowledgedAt *time.Time
	AcknowledgedBy *string
}

type CaretakerLink struct {
	CaretakerID string
	PatientID   string
	CreatedAt   time.Time
}
