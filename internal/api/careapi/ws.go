package careapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BearBump/CareTrack/internal/auth"
	"github.com/BearBump/CareTrack/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is the edge proxy's job.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = 30 * time.Second
)

type wsRequest struct {
	Action    string `json:"action"` // subscribe | unsubscribe
	Stream    string `json:"stream"` // location | alerts
	PatientID string `json:"patient_id"`
}

type wsFrame struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// serveWS upgrades the connection and bridges it to a hub session. Fixes and
// alert events stream out as wsFrame messages; the client drives its
// subscriptions with wsRequest messages. A dropped connection loses the
// session's subscriptions; the client re-subscribes after reconnecting and
// refetches latest state over REST.
func (a *API) serveWS(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade", "error", err.Error())
		return
	}

	session := a.hub.Open()
	if err := session.Connect(r.Context(), hub.NopDialer, hub.DefaultBackoff()); err != nil {
		_ = conn.Close()
		return
	}
	defer func() {
		session.Close()
		_ = conn.Close()
	}()

	go a.wsWriteLoop(conn, session)
	a.wsReadLoop(conn, session, id)
}

func (a *API) wsReadLoop(conn *websocket.Conn, session *hub.Session, id auth.Identity) {
	// The request context dies with the handshake; the socket outlives it.
	ctx := context.Background()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	subs := map[string]*hub.Subscription{}

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if err := a.access.CanAccessPatient(ctx, id, req.PatientID); err != nil {
			a.log.Warn("ws subscribe denied", "user_id", id.UserID, "patient_id", req.PatientID)
			continue
		}

		var topic string
		switch req.Stream {
		case "location":
			topic = hub.LocationTopic(req.PatientID)
		case "alerts":
			topic = hub.AlertsTopic(req.PatientID)
		default:
			continue
		}

		switch req.Action {
		case "subscribe":
			if _, ok := subs[topic]; ok {
				continue
			}
			var (
				sub *hub.Subscription
				err error
			)
			if req.Stream == "location" {
				sub, err = a.hub.SubscribeLocation(session, req.PatientID)
			} else {
				sub, err = a.hub.SubscribeAlerts(session, req.PatientID)
			}
			if err != nil {
				return
			}
			subs[topic] = sub
		case "unsubscribe":
			if sub, ok := subs[topic]; ok {
				sub.Unsubscribe()
				delete(subs, topic)
			}
		}
	}
}

func (a *API) wsWriteLoop(conn *websocket.Conn, session *hub.Session) {
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	for {
		select {
		case env := <-session.C():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(wsFrame{Topic: env.Topic, Data: env.Data}); err != nil {
				_ = conn.Close()
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-session.Done():
			return
		}
	}
}
