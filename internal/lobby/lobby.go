package lobby

import (
	"context"

	"go.uber.org/zap"

	"github.com/eeshag/ihs-imposter/internal/engine"
)

type Msg interface{ isLobbyMsg() }

// Do applies one engine command against the latest committed session.
// Reply may be nil for fire-and-forget callers (the ws intent path).
type Do struct {
	Cmd   engine.Command
	Reply chan Result
}

func (Do) isLobbyMsg() {}

type Result struct {
	Events  []engine.Event
	Session engine.Session
	Version int
	Err     error
}

type Subscribe struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Subscribe) isLobbyMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Snapshot struct {
	Version int
	Session engine.Session
}

type View struct {
	Version    int
	NumClients int
	Session    engine.Session
}

// Lobby is the single writer for one session code. Every mutation is a
// message processed serially against the latest committed snapshot, so
// racing clients can never lose updates or double-claim a seat.
type Lobby struct {
	inbox   chan Msg
	session engine.Session
	version int
	clients map[string]chan Snapshot
	onEnded func()
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewLobby spawns the actor. onEnded (may be nil) fires once, when a
// command ends the session, regardless of which transport sent it.
func NewLobby(parent context.Context, initial engine.Session, log *zap.Logger, onEnded func()) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:   make(chan Msg, 64),
		session: initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		onEnded: onEnded,
		log:     log.With(zap.String("code", initial.Code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

// Done is closed once the lobby has shut down. Callers racing a prune
// select on it instead of blocking forever on a reply.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: l.version, Session: l.session}

			case Unsubscribe:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case Do:
				events, next, err := engine.Apply(l.session, msg.Cmd)
				if err == nil && len(events) > 0 {
					l.session = next
					l.version++
					for _, evt := range events {
						l.log.Info("session event",
							zap.String("event", string(evt.Type)),
							zap.Int("player", evt.PlayerNumber),
							zap.String("phase", string(l.session.Phase)),
							zap.Int("version", l.version))
					}
					l.broadcast(Snapshot{Version: l.version, Session: l.session})
					if engine.ContainsEvent(events, engine.EvtSessionEnded) && l.onEnded != nil {
						l.onEnded()
					}
				}
				if msg.Reply != nil {
					msg.Reply <- Result{Events: events, Session: l.session, Version: l.version, Err: err}
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Session:    l.session,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests, handlers, or the WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }
