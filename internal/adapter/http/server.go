package http

import (
	"net/http"

	"github.com/bnema/backdrop/internal/adapter/http/middleware"
	"github.com/bnema/backdrop/internal/port"
	"github.com/bnema/backdrop/internal/service"
)

type Server struct {
	mux        *http.ServeMux
	handlers   *Handlers
	sseHandler *SSEHandler
}

func NewServer(imageSvc ImageService, blobs port.BlobStore, eventBus *service.EventBus, maxSizeMB int) *Server {
	mux := http.NewServeMux()
	handlers := NewHandlers(imageSvc, blobs, maxSizeMB)
	sseHandler := NewSSEHandler(eventBus, imageSvc)

	s := &Server{
		mux:        mux,
		handlers:   handlers,
		sseHandler: sseHandler,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /images", s.handlers.Upload())
	s.mux.HandleFunc("GET /images/{id}", s.handlers.Status())
	s.mux.HandleFunc("DELETE /images/{id}", s.handlers.Delete())
	s.mux.HandleFunc("GET /images/session/{sessionId}", s.handlers.Session())

	s.mux.HandleFunc("GET /events/{id}", s.sseHandler.Events())

	s.mux.HandleFunc("GET /files/{container}/{key}", s.handlers.Blob())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	middleware.SecurityHeaders(s.mux).ServeHTTP(w, r)
}
