package api

import (
	"encoding/json"
	"fmt"
	"image/jpeg"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/ActionShot/internal/logger"
	"github.com/bryanchriswhite/ActionShot/internal/pipeline"
	"github.com/bryanchriswhite/ActionShot/internal/store"
)

// Server exposes the pipeline over HTTP: frame submission, the processing
// trigger, reset, composition, and a websocket event stream.
type Server struct {
	router   *mux.Router
	pipe     *pipeline.Pipeline
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new API server around the pipeline and its hub.
func NewServer(pipe *pipeline.Pipeline, hub *Hub) *Server {
	s := &Server{
		router: mux.NewRouter(),
		pipe:   pipe,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/frames", s.handleSubmitFrame).Methods("POST")
	api.HandleFunc("/process", s.handleProcess).Methods("POST")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/composite", s.handleComposite).Methods("POST")
	api.HandleFunc("/composite/latest", s.handleLatestComposite).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the underlying router, used in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleSubmitFrame(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	img, err := imaging.Decode(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("undecodable frame: %v", err), http.StatusBadRequest)
		return
	}

	s.pipe.SubmitFrame(store.Frame{Image: img, Timestamp: time.Now()})

	processed, masks, pending := s.pipe.Counts()
	s.writeJSONStatus(w, http.StatusAccepted, map[string]interface{}{
		"processed": processed,
		"masks":     masks,
		"pending":   pending,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.pipe.ProcessFrames()
	s.writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.pipe.Reset()
	s.writeJSON(w, map[string]string{"status": "reset"})
}

func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipe.CompositeFrames()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Composite-Status", string(result.Status))
	w.Header().Set("X-Selected-Count", strconv.Itoa(len(result.Selected)))
	if err := jpeg.Encode(w, result.Image, &jpeg.Options{Quality: 90}); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Failed to encode composite")
	}
}

func (s *Server) handleLatestComposite(w http.ResponseWriter, r *http.Request) {
	img := s.hub.Latest()
	if img == nil {
		http.Error(w, "no composite yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 90}); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Failed to encode composite")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	processed, masks, pending := s.pipe.Counts()
	s.writeJSON(w, map[string]interface{}{
		"processing": s.pipe.Processing(),
		"processed":  processed,
		"masks":      masks,
		"pending":    pending,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(events)

	// Read pump: the client sends nothing we care about, but reading is
	// the only way to notice a disconnect between events.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload := <-events:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-disconnected:
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	s.writeJSONStatus(w, http.StatusOK, v)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Error().Err(err).Msg("Failed to encode response")
	}
}
