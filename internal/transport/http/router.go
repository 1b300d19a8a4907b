package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, authn auth.Authenticator, wsServer *ws.Server, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint авторизуется сам (access_token в query)
	r.Get("/ws", wsServer.HandleWS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(authn))
		pr.Use(middlewareChi.Timeout(30 * time.Second))
		pr.Use(middlewareChi.Compress(5))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Post("/", h.CreateRoom)
			rm.Get("/", h.ListRooms)

			rm.Route("/{id}", func(rr chi.Router) {
				rr.Get("/", h.GetRoom)
				rr.Post("/members", h.AddMembers)
				rr.Delete("/members/{userId}", h.RemoveMember)
				rr.Put("/change-admin/{userId}", h.ChangeAdmin)
				rr.Post("/messages", h.SendMessage)
				rr.Get("/messages", h.GetChatHistory)
			})
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
