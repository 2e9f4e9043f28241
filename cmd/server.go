package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/queue"
	"github.com/sells-group/profile-cli/internal/scorer"
	"github.com/sells-group/profile-cli/internal/store"
)

const maxRequestBody = 1 << 20

// server holds the HTTP handlers for build intake and profile reads.
type server struct {
	store  store.Store
	queue  queue.Queue
	scorer *scorer.Scorer
}

func newRouter(s *server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/builds", s.createBuild)
		r.Get("/persons", s.listPersons)
		r.Route("/persons/{id}", func(r chi.Router) {
			r.Get("/", s.getPerson)
			r.Get("/items", s.listItems)
			r.Get("/roles", s.listRoles)
		})
	})
	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createBuild upserts the seed fields and enqueues the build.
func (s *server) createBuild(w http.ResponseWriter, r *http.Request) {
	var req model.BuildRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := queue.ValidateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	person, err := s.store.GetPerson(ctx, req.PersonID)
	if err != nil {
		zap.L().Error("server: load person", zap.String("person_id", req.PersonID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if person == nil {
		if req.PersonName == "" {
			writeError(w, http.StatusBadRequest, "personName is required for a new person")
			return
		}
		person = &model.Person{}
	}
	req.ApplyTo(person)
	if err := s.store.UpsertPerson(ctx, person); err != nil {
		zap.L().Error("server: upsert person", zap.String("person_id", req.PersonID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	jobID, err := s.queue.Enqueue(ctx, req)
	if err != nil {
		zap.L().Error("server: enqueue build", zap.String("person_id", req.PersonID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"person_id": person.ID,
		"job_id":    jobID,
	})
}

func (s *server) getPerson(w http.ResponseWriter, r *http.Request) {
	person, ok := s.loadPerson(w, r)
	if !ok {
		return
	}
	score, err := s.scorer.ScorePerson(r.Context(), s.store, person)
	if err != nil {
		zap.L().Error("server: score person", zap.String("person_id", person.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "score unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"person": person,
		"score":  score,
	})
}

func (s *server) listPersons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PersonFilter{
		Status: model.PersonStatus(q.Get("status")),
		Name:   q.Get("name"),
		Limit:  atoiDefault(q.Get("limit"), 50),
		Offset: atoiDefault(q.Get("offset"), 0),
	}
	persons, err := s.store.ListPersons(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list persons", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if persons == nil {
		persons = []model.Person{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"persons": persons})
}

func (s *server) listItems(w http.ResponseWriter, r *http.Request) {
	person, ok := s.loadPerson(w, r)
	if !ok {
		return
	}
	src := model.SourceType(r.URL.Query().Get("source"))
	if src != "" && !src.Valid() {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}
	items, err := s.store.ListItems(r.Context(), person.ID, src)
	if err != nil {
		zap.L().Error("server: list items", zap.String("person_id", person.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if items == nil {
		items = []model.NormalizedItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) listRoles(w http.ResponseWriter, r *http.Request) {
	person, ok := s.loadPerson(w, r)
	if !ok {
		return
	}
	roles, err := s.store.ListRoles(r.Context(), person.ID)
	if err != nil {
		zap.L().Error("server: list roles", zap.String("person_id", person.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	if roles == nil {
		roles = []model.PersonRole{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (s *server) loadPerson(w http.ResponseWriter, r *http.Request) (*model.Person, bool) {
	id := chi.URLParam(r, "id")
	person, err := s.store.GetPerson(r.Context(), id)
	if err != nil {
		zap.L().Error("server: load person", zap.String("person_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return nil, false
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "person not found")
		return nil, false
	}
	return person, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
