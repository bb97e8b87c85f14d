package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ritzau/netview/pkg/interact"
	"github.com/ritzau/netview/pkg/logging"
	"github.com/ritzau/netview/pkg/model"
	"github.com/ritzau/netview/pkg/pubsub"
	"github.com/ritzau/netview/pkg/render"
	"github.com/ritzau/netview/pkg/view"
)

const maxBodyBytes = 8 << 20

// CreateViewRequest is the optional body of POST /api/views
type CreateViewRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VisibilityRequest is the body of PUT /api/views/{id}/visibility
type VisibilityRequest struct {
	ShowAll bool `json:"show_all"`
}

// ViewInfo describes a mounted view
type ViewInfo struct {
	ID     string            `json:"id"`
	Status pubsub.ViewStatus `json:"status"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	sink      *view.PublisherSink
	config    view.Config
	viewOpts  []view.Option

	mu    sync.RWMutex
	views map[string]*view.View
}

// NewServer creates a new web server. Every view it mounts is built from cfg
// and opts.
func NewServer(cfg view.Config, opts ...view.Option) *Server {
	ssePublisher := pubsub.NewSSEPublisher()
	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		sink:      view.NewPublisherSink(ssePublisher),
		config:    cfg,
		viewOpts:  opts,
		views:     make(map[string]*view.View),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publisher returns the publisher views report to
func (s *Server) Publisher() pubsub.Publisher {
	return s.publisher
}

// Mount creates a view under id. An empty id gets a fresh uuid.
func (s *Server) Mount(id string, width, height float64) *view.View {
	if id == "" {
		id = uuid.New().String()
	}

	// the previous view's unmounted status must not be replayed to
	// subscribers of its replacement
	if s.Unmount(id) {
		logging.Info("view replaced", "view", id)
	}

	// scene: only the latest frame matters, to new and to slow subscribers
	s.publisher.ConfigureTopic(pubsub.Topic(id, pubsub.KindScene), pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
		Coalesce:   true,
	})
	// view_status: replay the last few so a late subscriber sees loaded + settled
	s.publisher.ConfigureTopic(pubsub.Topic(id, pubsub.KindViewStatus), pubsub.TopicConfig{
		BufferSize: 4,
		ReplayAll:  true,
	})

	cfg := s.config
	if width > 0 && height > 0 {
		cfg.Width, cfg.Height = width, height
	}
	v := view.New(id, cfg, s.sink, s.viewOpts...)

	s.mu.Lock()
	s.views[id] = v
	s.mu.Unlock()

	logging.Info("view mounted", "view", id, "width", cfg.Width, "height", cfg.Height)
	return v
}

// View returns a mounted view
func (s *Server) View(id string) (*view.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id]
	return v, ok
}

// Unmount closes a view and forgets its topics
func (s *Server) Unmount(id string) bool {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return false
	}

	v.Close()
	for _, kind := range []string{pubsub.KindScene, pubsub.KindNavigation, pubsub.KindViewStatus} {
		s.publisher.ForgetTopic(pubsub.Topic(id, kind))
	}
	return true
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(viewContext)
	api.HandleFunc("/views", s.handleListViews).Methods("GET")
	api.HandleFunc("/views", s.handleCreateView).Methods("POST")
	api.HandleFunc("/views/{id}", s.handleViewStatus).Methods("GET")
	api.HandleFunc("/views/{id}", s.handleDeleteView).Methods("DELETE")
	api.HandleFunc("/views/{id}/network", s.handleLoadNetwork).Methods("PUT")
	api.HandleFunc("/views/{id}/visibility", s.handleVisibility).Methods("PUT")
	api.HandleFunc("/views/{id}/events", s.handleEvents).Methods("POST")
	api.HandleFunc("/views/{id}/scene", s.handleScene).Methods("GET")
	api.HandleFunc("/views/{id}/scene.svg", s.handleSceneSVG).Methods("GET")
	api.HandleFunc("/views/{id}/subscribe", s.handleSubscribe).Methods("GET")
}

// viewContext tags the request context with the {id} route variable so
// context-aware log lines carry the view
func viewContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := mux.Vars(r)["id"]; id != "" {
			r = r.WithContext(logging.TagView(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// lookup resolves the {id} route variable, writing a 404 when it is unknown
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*view.View, bool) {
	id := mux.Vars(r)["id"]
	v, ok := s.View(id)
	if !ok {
		http.Error(w, fmt.Sprintf("view %q not found", id), http.StatusNotFound)
		return nil, false
	}
	return v, true
}

func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	infos := make([]ViewInfo, 0, len(s.views))
	for id, v := range s.views {
		infos = append(infos, ViewInfo{ID: id, Status: v.Status()})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	writeJSON(r.Context(), w, http.StatusOK, infos)
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req CreateViewRequest
	if err := decodeBody(r, &req, true); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v := s.Mount("", req.Width, req.Height)
	w.Header().Set("Location", "/api/views/"+v.ID())
	writeJSON(r.Context(), w, http.StatusCreated, ViewInfo{ID: v.ID(), Status: v.Status()})
}

func (s *Server) handleViewStatus(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, ViewInfo{ID: v.ID(), Status: v.Status()})
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if !s.Unmount(mux.Vars(r)["id"]) {
		http.Error(w, "view not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadNetwork(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var resp model.NetworkResponse
	if err := decodeBody(r, &resp, false); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := view.ParseMode(r.URL.Query().Get("mode"), &resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := v.Load(&resp, mode); err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, ViewInfo{ID: v.ID(), Status: v.Status()})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req VisibilityRequest
	if err := decodeBody(r, &req, false); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := v.SetShowAll(req.ShowAll); err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, ViewInfo{ID: v.ID(), Status: v.Status()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	events, err := interact.DecodeEvents(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := v.Dispatch(events...); err != nil {
		writeViewError(w, err)
		return
	}
	logging.TraceContext(r.Context(), "input queued", "events", len(events))
	writeJSON(r.Context(), w, http.StatusAccepted, map[string]int{"queued": len(events)})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	scene, err := v.Scene()
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, scene)
}

func (s *Server) handleSceneSVG(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	scene, err := v.Scene()
	if err != nil {
		writeViewError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := render.WriteSVG(w, scene); err != nil {
		logging.WarnContext(r.Context(), "failed to write svg", "error", err)
	}
}

// handleSubscribe streams scene, navigation and status events of one view.
// ?topics=scene,navigation narrows the stream.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	kinds := []string{pubsub.KindViewStatus, pubsub.KindScene, pubsub.KindNavigation}
	if raw := r.URL.Query().Get("topics"); raw != "" {
		kinds = strings.Split(raw, ",")
	}

	merged := make(chan pubsub.Event)
	var wg sync.WaitGroup
	for _, kind := range kinds {
		sub, err := s.publisher.Subscribe(r.Context(), pubsub.Topic(v.ID(), strings.TrimSpace(kind)))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case event, ok := <-sub.Events():
					if !ok {
						return
					}
					select {
					case merged <- event:
					case <-r.Context().Done():
						return
					}
				case <-r.Context().Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-merged:
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "sse client gone", "error", err)
				return
			}
			flush(w)
			if event.Type == "unmounted" {
				return
			}
		}
	}
}

// Close unmounts every view and shuts the publisher down
func (s *Server) Close() error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.views))
	for id := range s.views {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Unmount(id)
	}
	return s.publisher.Close()
}

// Start starts the web server on the specified port and shuts it down
// gracefully when ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("Starting web server", "url", "http://localhost"+addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// SSE streams only end when their views go away
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	logging.Info("Web server stopped")
	return nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// decodeBody reads a JSON body. With optional set an empty body is fine.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WarnContext(ctx, "failed to encode response", "error", err)
	}
}

func writeViewError(w http.ResponseWriter, err error) {
	if errors.Is(err, view.ErrUnmounted) {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
