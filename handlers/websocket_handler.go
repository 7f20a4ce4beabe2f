package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Joenasriani/vibedeal/models"
	"github.com/Joenasriani/vibedeal/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow connections from any origin
	},
}

// WebSocketMessage is the envelope for every frame in either
// direction.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// clientMessage keeps the payload raw so each message type can decode
// its own shape.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type coordsPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type togglePayload struct {
	Key string `json:"key"`
}

type locationErrorPayload struct {
	// Reason is "unsupported" when the client has no geolocation
	// capability, anything else counts as denied.
	Reason string `json:"reason"`
}

// sessionConn pairs the websocket connection with a write lock, since
// search completions and loop replies write concurrently.
type sessionConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	logger  *zap.Logger
}

func (c *sessionConn) send(msgType string, data interface{}) {
	msg := WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	}

	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Error("Failed to send websocket message",
			zap.Error(err), zap.String("type", msgType))
	}
}

// HandleDealSession upgrades the connection and runs one deal session
// for its lifetime. Client message types: search, toggle_feature,
// use_location, location_error, ping, stop.
func HandleDealSession(w http.ResponseWriter, r *http.Request, fetcher utils.DealFetcher, store *utils.SessionStore) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	session := openSession(r, fetcher, store)
	session.Logger.Info("Deal session attached")

	sc := &sessionConn{conn: conn, logger: session.Logger}
	session.SetNotify(func(snap models.SessionSnapshot) {
		sc.send("state", snap)
	})

	// Initial idle snapshot so the client can render defaults.
	sc.send("state", session.Snapshot())

	session.listen(r.Context(), sc)
	session.Logger.Info("Deal session ended")
}

// openSession resumes the stored session when the client presents a
// known id, otherwise starts a fresh one.
func openSession(r *http.Request, fetcher utils.DealFetcher, store *utils.SessionStore) *DealSession {
	if id := r.URL.Query().Get("session_id"); id != "" && store != nil {
		snap, err := store.LoadSnapshot(r.Context(), id)
		if err != nil {
			zap.L().Warn("Failed to load stored session",
				zap.Error(err), zap.String("session_id", id))
		} else if snap != nil {
			return ResumeDealSession(*snap, fetcher, store)
		}
	}
	return NewDealSession(uuid.New().String(), fetcher, store)
}

func (s *DealSession) listen(ctx context.Context, sc *sessionConn) {
	for {
		var msg clientMessage
		err := sc.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.Logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "search":
			s.handleSearchMessage(ctx, msg.Data)
		case "toggle_feature":
			s.handleToggleMessage(msg.Data)
		case "use_location":
			s.handleLocationMessage(sc, msg.Data)
		case "location_error":
			s.handleLocationError(msg.Data)
		case "ping":
			sc.send("pong", nil)
		case "stop":
			s.Logger.Info("Received stop command from client")
			sc.send("stop_confirmation", map[string]interface{}{
				"session_id": s.ID,
				"message":    "Session stopped successfully",
			})
			return
		default:
			s.Logger.Warn("Unknown message type", zap.String("type", msg.Type))
		}
	}
}

func (s *DealSession) handleSearchMessage(ctx context.Context, data json.RawMessage) {
	var params models.SearchParams
	params.OptionalFeatures = s.Features()
	if err := json.Unmarshal(data, &params); err != nil {
		s.Logger.Error("Invalid search payload", zap.Error(err))
		return
	}

	// Submit blocks on the remote call; run it off the read loop so a
	// newer submission can supersede it.
	go s.Submit(ctx, params)
}

func (s *DealSession) handleToggleMessage(data json.RawMessage) {
	var payload togglePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.Logger.Error("Invalid toggle payload", zap.Error(err))
		return
	}
	s.ToggleFeature(payload.Key)
}

func (s *DealSession) handleLocationMessage(sc *sessionConn, data json.RawMessage) {
	var coords coordsPayload
	if err := json.Unmarshal(data, &coords); err != nil {
		s.Logger.Error("Invalid location payload", zap.Error(err))
		return
	}

	snap := s.UseCurrentLocation(LocationFix{
		Supported: true,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	})
	sc.send("location", map[string]string{"location": snap.Location})
}

func (s *DealSession) handleLocationError(data json.RawMessage) {
	var payload locationErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.Logger.Error("Invalid location error payload", zap.Error(err))
		return
	}

	fix := LocationFix{Supported: payload.Reason != "unsupported", Denied: true}
	s.UseCurrentLocation(fix)
}
