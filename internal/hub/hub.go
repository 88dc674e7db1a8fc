package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eeshag/ihs-imposter/internal/engine"
	"github.com/eeshag/ihs-imposter/internal/lobby"
)

// How long an ended session stays readable so every poller can observe
// the ENDED phase before the code is reclaimed. Vars so tests can
// shrink the clock.
var endedGracePeriod = 5 * time.Minute

var pruneInterval = time.Minute

type HubMsg interface{ isHubMsg() }

// CreateLobby atomically claims a code. Reply receives nil when the
// code is already taken, which is how the code generator detects
// collisions without a separate check-then-create race.
type CreateLobby struct {
	Code    string
	Session engine.Session
	Reply   chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// MarkEnded schedules a session for pruning after the grace period.
type MarkEnded struct {
	Code string
}

type RemoveLobby struct {
	Code string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (MarkEnded) isHubMsg()   {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the code->lobby map. Like the lobbies themselves it is a
// single goroutine fed by a typed inbox, so code claims are serialized.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	ended   map[string]time.Time
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ended:   make(map[string]time.Time),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-prune.C:
			h.pruneEnded()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- nil
					break
				}
				// The ended notification runs on the lobby goroutine;
				// hop off it so the two actors can't block each other.
				code := msg.Code
				lb := lobby.NewLobby(h.ctx, msg.Session, h.log, func() {
					go func() { h.inbox <- MarkEnded{Code: code} }()
				})
				h.lobbies[msg.Code] = lb
				h.log.Info("session created", zap.String("code", msg.Code))
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case MarkEnded:
				if h.lobbies[msg.Code] != nil {
					h.ended[msg.Code] = time.Now()
				}

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Inbox() <- lobby.Shutdown{}
					delete(h.lobbies, msg.Code)
					delete(h.ended, msg.Code)
				}

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.Shutdown{}
				}
				clear(h.lobbies)
				clear(h.ended)
				h.cancel()
			}
		}
	}
}

func (h *Hub) pruneEnded() {
	now := time.Now()
	for code, endedAt := range h.ended {
		if now.Sub(endedAt) < endedGracePeriod {
			continue
		}
		if lb := h.lobbies[code]; lb != nil {
			lb.Inbox() <- lobby.Shutdown{}
			delete(h.lobbies, code)
		}
		delete(h.ended, code)
		h.log.Info("ended session pruned", zap.String("code", code))
	}
}
