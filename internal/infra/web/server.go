// File: internal/infra/web/server.go
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"helpdesk-bridge/internal/domain"
	"helpdesk-bridge/internal/domain/model"
	"helpdesk-bridge/internal/infra/worker"
	"helpdesk-bridge/internal/usecase"
)

// Server wires the webhook and request-inspection routes to the usecases.
type Server struct {
	pipeline usecase.PipelineUseCase
	coord    *usecase.Coordinator
	done     usecase.DoneUseCase
	pool     *worker.Pool
	log      *zerolog.Logger
}

func NewServer(pipeline usecase.PipelineUseCase, coord *usecase.Coordinator, done usecase.DoneUseCase, pool *worker.Pool, logger *zerolog.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		coord:    coord,
		done:     done,
		pool:     pool,
		log:      logger,
	}
}

// Router builds the chi router for the whole HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/webhooks/helpdesk", s.handleHelpdeskWebhook)
	r.Post("/webhooks/tracker", s.handleTrackerWebhook)

	r.Route("/api/v1/requests", func(r chi.Router) {
		r.Get("/", s.handleListRequests)
		r.Get("/{id}", s.handleGetRequest)
		r.Post("/{id}/retry", s.handleRetry)
		r.Get("/{id}/events", s.handleRequestEvents)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// helpdeskEvent is the inbound new-message payload from the helpdesk.
type helpdeskEvent struct {
	Conversation struct {
		ID     string `json:"id"`
		WebURL string `json:"web_url"`
	} `json:"conversation"`
	Message struct {
		Body    string `json:"body"`
		Preview string `json:"preview"`
	} `json:"message"`
}

func (s *Server) handleHelpdeskWebhook(w http.ResponseWriter, r *http.Request) {
	var ev helpdeskEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "bad payload"})
		return
	}
	if ev.Conversation.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "missing conversation id"})
		return
	}
	body := ev.Message.Body
	if body == "" {
		body = ev.Message.Preview
	}

	req := s.pipeline.NewRequest(usecase.InboundEvent{
		ConversationID:  ev.Conversation.ID,
		ConversationURL: ev.Conversation.WebURL,
		MessageBody:     body,
	})
	if err := s.coord.Register(req); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	if err := s.submitRun(req); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	s.log.Info().Str("request_id", req.ID).Str("conversation_id", ev.Conversation.ID).Msg("pipeline request accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok", "request_id": req.ID})
}

// trackerEvent is the tracker's properties-updated webhook payload.
type trackerEvent struct {
	Challenge string `json:"challenge"`
	Type      string `json:"type"`
	Entity    struct {
		ID string `json:"id"`
	} `json:"entity"`
	Data struct {
		UpdatedProperties []string `json:"updated_properties"`
	} `json:"data"`
	Timestamp     string `json:"timestamp"`
	AttemptNumber int    `json:"attempt_number"`
}

func (s *Server) handleTrackerWebhook(w http.ResponseWriter, r *http.Request) {
	var ev trackerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "bad payload"})
		return
	}

	// Subscription handshake: echo the challenge and do nothing else.
	if ev.Challenge != "" {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": ev.Challenge})
		return
	}

	uev := usecase.TrackerEvent{
		Type:              ev.Type,
		PageID:            ev.Entity.ID,
		UpdatedProperties: ev.Data.UpdatedProperties,
		AttemptNumber:     ev.AttemptNumber,
	}
	if err := s.pool.Submit(func(ctx context.Context) error {
		s.done.HandleTrackerEvent(ctx, uev)
		return nil
	}); err != nil {
		// The notifier path never fails the webhook; a saturated pool
		// only costs this redelivery attempt.
		s.log.Warn().Err(err).Str("page_id", ev.Entity.ID).Msg("dropped tracker event")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "event received"})
}

func (s *Server) handleListRequests(w http.ResponseWriter, _ *http.Request) {
	reqs := s.coord.List()
	out := make([]requestJSON, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestJSON(r))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.coord.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "request not found"})
		return
	}
	writeJSON(w, http.StatusOK, toRequestJSON(req))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Step string `json:"step"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "bad payload"})
			return
		}
	}

	var step *model.StepType
	if body.Step != "" {
		st := model.StepType(body.Step)
		if !validStep(st) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": fmt.Sprintf("unknown step %q", body.Step)})
			return
		}
		step = &st
	}

	req, err := s.coord.Retry(id, step)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "request not found"})
		return
	case errors.Is(err, domain.ErrRequestRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"status": "error", "message": "request is running"})
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	// Serialize before submitting: the pool goroutine owns the working
	// copy once Run starts.
	out := toRequestJSON(req)
	if err := s.submitRun(req); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

// handleRequestEvents streams request snapshots as server-sent events
// until the client disconnects or the request is evicted.
func (s *Server) handleRequestEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.coord.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "request not found"})
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "streaming unsupported"})
		return
	}

	ch := s.coord.Subscribe(id)
	defer s.coord.Unsubscribe(id, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, snap)
	fl.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case next, open := <-ch:
			if !open {
				return
			}
			writeEvent(w, next)
			fl.Flush()
		}
	}
}

func (s *Server) submitRun(req *model.Request) error {
	return s.pool.Submit(func(ctx context.Context) error {
		s.pipeline.Run(ctx, req)
		return nil
	})
}

func validStep(st model.StepType) bool {
	for _, t := range model.StepOrder() {
		if t == st {
			return true
		}
	}
	return false
}

func writeEvent(w http.ResponseWriter, req *model.Request) {
	b, err := json.Marshal(toRequestJSON(req))
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
