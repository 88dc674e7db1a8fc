package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eeshag/ihs-imposter/internal/ws"
)

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(a.Log))

	r.Route("/api/game", func(r chi.Router) {
		r.Post("/create", a.CreateGame)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", a.GetGame)
			r.Get("/results", a.VotingResults)
			r.Get("/qr", a.JoinQR)
			r.Post("/join", a.JoinGame)
			r.Post("/start", a.StartGame)
			r.Post("/ready", a.MarkReady)
			r.Post("/select-starting-player", a.SelectStartingPlayer)
			r.Post("/select-next-player", a.SelectNextPlayer)
			r.Post("/start-voting", a.StartVoting)
			r.Post("/submit-vote", a.SubmitVote)
			r.Post("/reveal-imposters", a.RevealImposters)
			r.Post("/end", a.EndGame)
		})
	})

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(a.Hub, a.Log))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
