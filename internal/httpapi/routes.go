package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/hub"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/internal/ws"
)

type Deps struct {
	Hub   *hub.Hub
	Store store.Store
	Log   *zap.Logger
	// PublicURL is the externally reachable base URL, used in QR codes.
	PublicURL string
}

func SetupRoutes(d Deps) http.Handler {
	api := &api{Deps: d, log: d.Log.Named("httpapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(api.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.Log))

	r.Route("/tournaments", func(r chi.Router) {
		r.Post("/", api.createTournament)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", api.getTournament)
			r.Post("/commands", api.postCommand)
			r.Put("/participants", api.putParticipants)
			r.Get("/winners", api.getWinners)
			r.Get("/templates", api.getTemplates)
			r.Put("/templates", api.putTemplates)
			r.Get("/display/qr.png", api.displayQR)
		})
	})

	r.Route("/wordlists", func(r chi.Router) {
		r.Post("/", api.postWordList)
		r.Get("/{id}", api.getWordList)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
