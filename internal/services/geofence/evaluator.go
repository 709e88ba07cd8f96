package geofence

import (
	"github.com/BearBump/CareTrack/internal/geo"
	"github.com/BearBump/CareTrack/internal/models"
)

// State maps zone id -> last-known "inside" flag. A zone missing from the
// map counts as outside, so the first ever fix inside a zone still emits
// an Entered transition.
type State map[string]bool

type TransitionKind int

const (
	Entered TransitionKind = iota
	Exited
)

func (k TransitionKind) String() string {
	if k == Entered {
		return "ENTERED"
	}
	return "EXITED"
}

type Transition struct {
	Kind     TransitionKind
	ZoneID   string
	ZoneName string
}

// Evaluate compares a fix against the active zones and the prior containment
// state, emitting one transition per zone whose containment flipped. The
// returned state is the full current mapping and replaces the prior one:
// zones no longer in the active set drop out of subsequent comparisons.
//
// The comparison is an edge trigger, not a level trigger — a caretaker is
// alerted once per departure, not on every fix while outside.
func Evaluate(fix *models.Fix, zones []*models.SafeZone, prior State) ([]Transition, State) {
	next := make(State, len(zones))
	var transitions []Transition

	for _, zone := range zones {
		inside := geo.IsInside(fix.Latitude, fix.Longitude, zone)
		next[zone.ID] = inside

		if inside == prior[zone.ID] {
			continue
		}
		kind := Exited
		if inside {
			kind = Entered
		}
		transitions = append(transitions, Transition{
			Kind:     kind,
			ZoneID:   zone.ID,
			ZoneName: zone.Name,
		})
	}

	return transitions, next
}
