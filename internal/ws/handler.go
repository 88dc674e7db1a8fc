package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eeshag/ihs-imposter/internal/engine"
	"github.com/eeshag/ihs-imposter/internal/hub"
	"github.com/eeshag/ihs-imposter/internal/lobby"
	"github.com/eeshag/ihs-imposter/internal/types"
)

// Handler upgrades to a websocket and streams versioned session
// snapshots, as a push alternative to polling GET. Versions only ever
// increase, so a subscriber can never observe a phase move backward.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Same normalization the REST path applies to typed-in codes.
		code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()

		lb.Inbox() <- lobby.Subscribe{ClientID: clientID, Outbox: out}
		defer func() { lb.Inbox() <- lobby.Unsubscribe{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "SessionSnapshot", Version: snap.Version, Session: &snap.Session}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"bad json"}`))
				continue
			}

			cmd, ok := toCommand(cm)
			if !ok {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"Error","error":"unknown action"}`))
				continue
			}

			log.Debug("ws intent",
				zap.String("code", code),
				zap.String("action", cm.Action))

			// Fire-and-forget; the result arrives as a snapshot.
			lb.Inbox() <- lobby.Do{Cmd: cmd}
		}
	}
}

func toCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Action {
	case "start":
		return engine.Command{Type: engine.CmdStart}, true
	case "ready":
		return engine.Command{Type: engine.CmdMarkReady, PlayerNumber: m.PlayerNumber}, true
	case "select-starting-player":
		return engine.Command{Type: engine.CmdSelectStartingPlayer}, true
	case "select-next-player":
		return engine.Command{Type: engine.CmdSelectNextPlayer}, true
	case "start-voting":
		return engine.Command{Type: engine.CmdStartVoting}, true
	case "submit-vote":
		return engine.Command{Type: engine.CmdSubmitVote, PlayerNumber: m.PlayerNumber, Accused: m.VotedPlayers}, true
	case "reveal-imposters":
		return engine.Command{Type: engine.CmdRevealImposters}, true
	case "end":
		return engine.Command{Type: engine.CmdEnd}, true
	default:
		return engine.Command{}, false
	}
}
