package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/beamlabs/beam/internal/adapter/driven/gateway/ws"
	"github.com/beamlabs/beam/internal/core/service"
)

type Handler struct {
	Rooms     *service.Rooms
	Hub       *ws.Hub
	StaticDir string
}

func NewHandler(rooms *service.Rooms, hub *ws.Hub, staticDir string) *Handler {
	return &Handler{
		Rooms:     rooms,
		Hub:       hub,
		StaticDir: staticDir,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/ws", h.ServeWS)

	fs := http.FileServer(http.Dir(h.StaticDir))
	r.Handle("/*", fs)

	return r
}
