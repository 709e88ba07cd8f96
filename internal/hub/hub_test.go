package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/CareTrack/internal/broker/messages"
	"github.com/BearBump/CareTrack/internal/models"
)

func mustConnect(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Connect(context.Background(), NopDialer, DefaultBackoff()))
}

func recvEnvelope(t *testing.T, s *Session) Envelope {
	t.Helper()
	select {
	case env := <-s.C():
		return env
	case <-time.After(time.Second):
		t.Fatal("no envelope delivered")
		return Envelope{}
	}
}

func testFix(patientID string) *models.Fix {
	return &models.Fix{PatientID: patientID, Latitude: 37, Longitude: -122, Timestamp: time.Now().UTC()}
}

func TestHub_TwoSessionsReceiveSameFix(t *testing.T) {
	h := New(0)

	s1 := h.Open()
	s2 := h.Open()
	mustConnect(t, s1)
	mustConnect(t, s2)

	sub1, err := h.SubscribeLocation(s1, "p1")
	require.NoError(t, err)
	_, err = h.SubscribeLocation(s2, "p1")
	require.NoError(t, err)

	h.PublishLocation("p1", testFix("p1"))

	for _, s := range []*Session{s1, s2} {
		env := recvEnvelope(t, s)
		require.Equal(t, "location/p1", env.Topic)
		var upd messages.LocationUpdated
		require.NoError(t, json.Unmarshal(env.Data, &upd))
		require.Equal(t, "p1", upd.PatientID)
		require.InDelta(t, 37.0, upd.Latitude, 1e-9)
	}

	// Unsubscribing one must not affect the other.
	sub1.Unsubscribe()
	sub1.Unsubscribe() // idempotent

	h.PublishLocation("p1", testFix("p1"))
	env := recvEnvelope(t, s2)
	require.Equal(t, "location/p1", env.Topic)

	select {
	case <-s1.C():
		t.Fatal("unsubscribed session still receiving")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SubscribeRequiresConnected(t *testing.T) {
	h := New(0)
	s := h.Open()

	_, err := h.SubscribeLocation(s, "p1")
	require.ErrorIs(t, err, models.ErrDisconnected)

	_, err = h.SubscribeAlerts(s, "p1")
	require.ErrorIs(t, err, models.ErrDisconnected)
}

func TestHub_DisconnectDropsSubscriptions(t *testing.T) {
	h := New(0)
	s := h.Open()
	mustConnect(t, s)

	_, err := h.SubscribeLocation(s, "p1")
	require.NoError(t, err)
	_, err = h.SubscribeAlerts(s, "p1")
	require.NoError(t, err)
	require.Equal(t, 1, h.Subscribers(LocationTopic("p1")))

	s.Disconnect()
	require.Equal(t, StateDisconnected, s.State())
	require.Zero(t, h.Subscribers(LocationTopic("p1")))
	require.Zero(t, h.Subscribers(AlertsTopic("p1")))

	// Fixes published during the gap are gone for good.
	h.PublishLocation("p1", testFix("p1"))

	// Reconnect: subscriptions must be re-issued explicitly.
	mustConnect(t, s)
	require.Zero(t, h.Subscribers(LocationTopic("p1")))

	_, err = h.SubscribeLocation(s, "p1")
	require.NoError(t, err)

	h.PublishLocation("p1", testFix("p1"))
	env := recvEnvelope(t, s)
	require.Equal(t, "location/p1", env.Topic)

	// Only the post-reconnect publish arrived.
	select {
	case <-s.C():
		t.Fatal("gap publish was replayed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FullQueueDropsOldest(t *testing.T) {
	h := New(2)
	s := h.Open()
	mustConnect(t, s)

	_, err := h.SubscribeLocation(s, "p1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f := testFix("p1")
		f.Latitude = float64(i)
		h.PublishLocation("p1", f)
	}
	require.Equal(t, int64(3), s.Dropped())

	// Queue holds the two newest publishes.
	var got []float64
	for i := 0; i < 2; i++ {
		env := recvEnvelope(t, s)
		var upd messages.LocationUpdated
		require.NoError(t, json.Unmarshal(env.Data, &upd))
		got = append(got, upd.Latitude)
	}
	require.Equal(t, []float64{3, 4}, got)
}

func TestHub_PublishAlertEvents(t *testing.T) {
	h := New(0)
	s := h.Open()
	mustConnect(t, s)

	_, err := h.SubscribeAlerts(s, "p1")
	require.NoError(t, err)

	alert := &models.Alert{ID: "a1", PatientID: "p1", Kind: models.AlertKindZoneExit, Message: "left safe zone Home", TriggeredAt: time.Now().UTC()}
	h.PublishAlert("p1", messages.AlertEventRaised, alert)

	env := recvEnvelope(t, s)
	require.Equal(t, "alerts/p1", env.Topic)
	var ev messages.AlertEvent
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	require.Equal(t, messages.AlertEventRaised, ev.Event)
	require.Equal(t, "a1", ev.Alert.ID)

	// Acknowledgment is broadcast on the same topic so race losers see
	// the winner's identity without polling.
	by := "caretaker-1"
	now := time.Now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = &by
	h.PublishAlert("p1", messages.AlertEventAcknowledged, alert)

	env = recvEnvelope(t, s)
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	require.Equal(t, messages.AlertEventAcknowledged, ev.Event)
	require.Equal(t, "caretaker-1", *ev.Alert.AcknowledgedBy)
}

func TestHub_PublishWithNoSubscribersIsNoop(t *testing.T) {
	h := New(0)
	h.PublishLocation("nobody", testFix("nobody"))
	h.PublishAlert("nobody", messages.AlertEventRaised, &models.Alert{ID: "a", PatientID: "nobody"})
}

func TestHub_SessionSubscribesToMultiplePatients(t *testing.T) {
	h := New(0)
	s := h.Open()
	mustConnect(t, s)

	_, err := h.SubscribeLocation(s, "p1")
	require.NoError(t, err)
	_, err = h.SubscribeLocation(s, "p2")
	require.NoError(t, err)

	h.PublishLocation("p1", testFix("p1"))
	h.PublishLocation("p2", testFix("p2"))

	topics := map[string]bool{}
	for i := 0; i < 2; i++ {
		env := recvEnvelope(t, s)
		topics[env.Topic] = true
	}
	require.True(t, topics["location/p1"])
	require.True(t, topics["location/p2"])
}
