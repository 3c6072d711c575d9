// Package web exposes the control surface: queue workflows, scheduler
// inspection and the manual maintenance triggers.
package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"turnq/internal/models"
	"turnq/internal/repository"
	"turnq/internal/scheduler"
	"turnq/internal/service"
)

type Server struct {
	sched   *scheduler.Scheduler
	service *service.QueueService
	queues  repository.QueueRepository
	clients repository.ClientRepository
}

func NewServer(sched *scheduler.Scheduler, svc *service.QueueService, queues repository.QueueRepository, clients repository.ClientRepository) *Server {
	return &Server{sched: sched, service: svc, queues: queues, clients: clients}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/queues", func(r chi.Router) {
			r.Get("/", s.listQueues)
			r.Post("/", s.createQueue)
			r.Get("/{queueID}", s.getQueue)
			r.Get("/{queueID}/waiting-times", s.waitingTimes)
			r.Post("/{queueID}/clients", s.joinQueue)
			r.Post("/{queueID}/attend-next", s.attendNext)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/{clientID}", s.getClient)
			r.Post("/{clientID}/postpone", s.postponeClient)
			r.Post("/{clientID}/attended", s.markAttended)
			r.Post("/{clientID}/leave", s.leaveQueue)
		})

		r.Route("/scheduler/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Get("/{group}/{id}", s.getJob)
			r.Post("/{group}/{id}/pause", s.pauseJob)
			r.Post("/{group}/{id}/resume", s.resumeJob)
			r.Post("/{group}/{id}/trigger", s.triggerJob)
			r.Delete("/{group}/{id}", s.deleteJob)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/recalculate", s.recalculateAll)
			r.Post("/clean-expired", s.cleanExpired)
		})
	})

	return r
}

type createQueueRequest struct {
	Name                      string `json:"name"`
	Description               string `json:"description"`
	Type                      string `json:"type"`
	WorkspaceID               int64  `json:"workspace_id"`
	AverageServiceTimeMinutes *int   `json:"average_service_time_minutes"`
}

func (s *Server) createQueue(w http.ResponseWriter, r *http.Request) {
	var req createQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "queue name is required")
		return
	}
	queueType := models.QueueType(req.Type)
	if queueType == "" {
		queueType = models.QueueFIFO
	}

	queue := &models.Queue{
		Name:                      req.Name,
		Description:               req.Description,
		Type:                      queueType,
		Status:                    models.QueueActive,
		WorkspaceID:               req.WorkspaceID,
		AverageServiceTimeMinutes: req.AverageServiceTimeMinutes,
		CreatedAt:                 time.Now(),
	}
	if err := s.queues.Save(r.Context(), queue); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, queue)
}

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.queues.FindAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "queueID")
	if !ok {
		return
	}
	queue, err := s.queues.FindByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

func (s *Server) waitingTimes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "queueID")
	if !ok {
		return
	}
	estimates, err := s.service.RecalculateWaitingTimes(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimates)
}

type joinRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (s *Server) joinQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "queueID")
	if !ok {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "client name is required")
		return
	}
	client, err := s.service.Join(r.Context(), id, req.Name, req.Email, req.Phone)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (s *Server) attendNext(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "queueID")
	if !ok {
		return
	}
	client, err := s.service.AttendNext(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	client, err := s.clients.FindByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

type postponeRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) postponeClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	var req postponeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	client, err := s.service.Postpone(r.Context(), id, req.Minutes)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) markAttended(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	client, err := s.service.MarkAttended(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) leaveQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	client, err := s.service.Leave(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// jobView flattens a JobRecord for the wire; the trigger is reported as
// its human description.
type jobView struct {
	ID             string     `json:"id"`
	Group          string     `json:"group"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	Trigger        string     `json:"trigger"`
	NextFireAt     *time.Time `json:"next_fire_at,omitempty"`
	PreviousFireAt *time.Time `json:"previous_fire_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func toJobView(record models.JobRecord) jobView {
	view := jobView{
		ID:             record.Key.ID,
		Group:          record.Key.Group,
		Kind:           string(record.Payload.Kind),
		Status:         string(record.Status),
		NextFireAt:     record.NextFireAt,
		PreviousFireAt: record.PreviousFireAt,
		LastError:      record.LastError,
		CreatedAt:      record.CreatedAt,
		FinishedAt:     record.FinishedAt,
	}
	if record.Trigger != nil {
		view.Trigger = record.Trigger.Describe()
	}
	return view
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	records := s.sched.ListAll(group)
	views := make([]jobView, 0, len(records))
	for _, record := range records {
		views = append(views, toJobView(record))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	record, ok := s.sched.Get(chi.URLParam(r, "id"), chi.URLParam(r, "group"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobView(record))
}

func (s *Server) pauseJob(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Pause(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "group")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resumeJob(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Resume(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "group")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) triggerJob(w http.ResponseWriter, r *http.Request) {
	result, err := s.sched.TriggerNow(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "group"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	if !s.sched.Cancel(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "group")) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recalculateAll(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RecalculateAllWaitingTimes(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cleanExpired(w http.ResponseWriter, r *http.Request) {
	expired, err := s.service.CleanExpiredClients(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, scheduler.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrDuplicateJob), errors.Is(err, scheduler.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrQueueNotActive),
		errors.Is(err, service.ErrClientNotInWaiting),
		errors.Is(err, service.ErrNoNotifiedClient),
		errors.Is(err, service.ErrInvalidPostpone),
		errors.Is(err, models.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("web: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
