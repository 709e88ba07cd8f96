package hub

// Topic strings, one per patient and data kind.
const (
	locationPrefix = "location/"
	alertsPrefix   = "alerts/"
)

func LocationTopic(patientID string) string {
	return locationPrefix + patientID
}

func AlertsTopic(patientID string) string {
	return alertsPrefix + patientID
}
