package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/eeshag/ihs-imposter/internal/engine"
	"github.com/eeshag/ihs-imposter/internal/hub"
	"github.com/eeshag/ihs-imposter/internal/lobby"
)

// API bundles the dependencies every handler needs.
type API struct {
	Hub        *hub.Hub
	Log        *zap.Logger
	BaseURL    string // public URL prefix embedded in QR join links
	CodeLength int
}

type createRequest struct {
	TotalPlayers int `json:"totalPlayers"`
	NumImposters int `json:"numImposters"`
}

type readyRequest struct {
	PlayerNumber int `json:"playerNumber"`
}

type voteRequest struct {
	PlayerNumber int   `json:"playerNumber"`
	VotedPlayers []int `json:"votedPlayers"`
}

type joinResponse struct {
	OK           bool `json:"ok"`
	PlayerNumber int  `json:"playerNumber"`
}

func (a *API) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	// Validate config before burning codes on it.
	if _, err := engine.NewSession("", req.TotalPlayers, req.NumImposters); errors.Is(err, engine.ErrInvalidConfig) {
		writeError(w, http.StatusBadRequest, "invalid game config")
		return
	}

	var sess engine.Session
	claimed := false
	for attempt := 0; attempt < maxCodeAttempts && !claimed; attempt++ {
		code, err := GenerateCode(a.CodeLength)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate code")
			return
		}
		sess, claimed = a.claim(code, req)
	}
	if !claimed {
		// Every random draw collided; the clock-derived code cannot
		// collide with another concurrent fallback.
		sess, claimed = a.claim(timestampCode(a.CodeLength), req)
	}
	if !claimed {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// claim builds the session and atomically registers its code with the
// hub. Returns false when the code was already taken.
func (a *API) claim(code string, req createRequest) (engine.Session, bool) {
	sess, err := engine.NewSession(code, req.TotalPlayers, req.NumImposters)
	if err != nil {
		return engine.Session{}, false
	}
	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.CreateLobby{Code: code, Session: sess, Reply: reply}
	if <-reply == nil {
		a.Log.Debug("code collision, regenerating", zap.String("code", code))
		return engine.Session{}, false
	}
	return sess, true
}

func (a *API) GetGame(w http.ResponseWriter, r *http.Request) {
	lb := a.lobbyFor(r)
	if lb == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	view, ok := a.view(lb)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, view.Session)
}

func (a *API) JoinGame(w http.ResponseWriter, r *http.Request) {
	lb := a.lobbyFor(r)
	if lb == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	res := a.do(lb, engine.Command{Type: engine.CmdJoin})
	switch {
	case errors.Is(res.Err, engine.ErrSessionFull):
		writeError(w, http.StatusConflict, "game is full")
	case errors.Is(res.Err, engine.ErrSessionEnded):
		writeError(w, http.StatusNotFound, "game not found")
	case res.Err != nil:
		writeError(w, http.StatusInternalServerError, "join failed")
	default:
		writeJSON(w, http.StatusOK, joinResponse{OK: true, PlayerNumber: res.Session.JoinedCount})
	}
}

func (a *API) StartGame(w http.ResponseWriter, r *http.Request) {
	a.command(w, r, engine.Command{Type: engine.CmdStart})
}

func (a *API) MarkReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	a.command(w, r, engine.Command{Type: engine.CmdMarkReady, PlayerNumber: req.PlayerNumber})
}

func (a *API) SelectStartingPlayer(w http.ResponseWriter, r *http.Request) {
	a.command(w, r, engine.Command{Type: engine.CmdSelectStartingPlayer})
}

func (a *API) SelectNextPlayer(w http.ResponseWriter, r *http.Request) {
	a.command(w, r, engine.Command{Type: engine.CmdSelectNextPlayer})
}

func (a *API) StartVoting(w http.ResponseWriter, r *http.Request) {
	a.command(w, r, engine.Command{Type: engine.CmdStartVoting})
}

func (a *API) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	a.command(w, r, engine.Command{
		Type:         engine.CmdSubmitVote,
		PlayerNumber: req.PlayerNumber,
		Accused:      req.VotedPlayers,
	})
}

func (a *API) RevealImposters(w http.ResponseWriter, r *http.Request) {
	a.command(w, r, engine.Command{Type: engine.CmdRevealImposters})
}

// EndGame flips the session to its terminal phase. The lobby reports
// the ended event to the hub itself, so the tombstone stays readable
// for a grace period no matter which transport ended the game.
func (a *API) EndGame(w http.ResponseWriter, r *http.Request) {
	a.command(w, r, engine.Command{Type: engine.CmdEnd})
}

// VotingResults serves the per-player vote counts. Every seated player
// appears, absentees from all ballots at 0. Ties are the display's
// problem.
func (a *API) VotingResults(w http.ResponseWriter, r *http.Request) {
	lb := a.lobbyFor(r)
	if lb == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	view, ok := a.view(lb)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, engine.TallyVotes(view.Session))
}

// JoinQR renders the join link as a PNG QR code.
func (a *API) JoinQR(w http.ResponseWriter, r *http.Request) {
	lb := a.lobbyFor(r)
	if lb == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	code := NormalizeCode(chi.URLParam(r, "code"))
	url := fmt.Sprintf("%s/join/%s", a.BaseURL, code)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render qr")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// command runs one engine command against the session and replies with
// the resulting snapshot. Out-of-phase duplicates come back as the
// unchanged session with a 200, never an error.
func (a *API) command(w http.ResponseWriter, r *http.Request, cmd engine.Command) {
	lb := a.lobbyFor(r)
	if lb == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	res := a.do(lb, cmd)
	switch {
	case errors.Is(res.Err, engine.ErrSessionEnded):
		writeError(w, http.StatusNotFound, "game not found")
	case res.Err != nil:
		writeError(w, http.StatusInternalServerError, "command failed")
	default:
		writeJSON(w, http.StatusOK, res.Session)
	}
}

func (a *API) lobbyFor(r *http.Request) *lobby.Lobby {
	code := NormalizeCode(chi.URLParam(r, "code"))
	reply := make(chan *lobby.Lobby, 1)
	a.Hub.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
	return <-reply
}

// do runs one command against the lobby. The hub may prune the lobby
// between lookup and send, so every wait also watches Done; a lobby
// gone mid-flight reads as an ended session.
func (a *API) do(lb *lobby.Lobby, cmd engine.Command) lobby.Result {
	reply := make(chan lobby.Result, 1)
	select {
	case lb.Inbox() <- lobby.Do{Cmd: cmd, Reply: reply}:
	case <-lb.Done():
		return lobby.Result{Err: engine.ErrSessionEnded}
	}
	select {
	case res := <-reply:
		return res
	case <-lb.Done():
		// The reply may have been committed just before shutdown.
		select {
		case res := <-reply:
			return res
		default:
			return lobby.Result{Err: engine.ErrSessionEnded}
		}
	}
}

func (a *API) view(lb *lobby.Lobby) (lobby.View, bool) {
	reply := make(chan lobby.View, 1)
	select {
	case lb.Inbox() <- lobby.GetState{Reply: reply}:
	case <-lb.Done():
		return lobby.View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-lb.Done():
		select {
		case v := <-reply:
			return v, true
		default:
			return lobby.View{}, false
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
