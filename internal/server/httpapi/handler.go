// Package httpapi exposes the record persistence API over REST. Every
// response uses the shared {"success", "data", "error"} envelope.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/logging"
	"github.com/akozlovs/vinotes/internal/server/records"
	"github.com/akozlovs/vinotes/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type RecordHandler struct {
	repo     records.Repository
	validate *validator.Validate
	log      logging.Logger
}

func NewRecordHandler(repo records.Repository, log logging.Logger) *RecordHandler {
	if log == nil {
		log = logging.NewNop()
	}
	return &RecordHandler{
		repo:     repo,
		validate: validator.New(),
		log:      log,
	}
}

// NewRouter wires the API routes.
func NewRouter(h *RecordHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggerMiddleware(h.log))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ping", h.Ping).Methods(http.MethodGet)
	api.HandleFunc("/records", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/records/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}", h.Update).Methods(http.MethodPut)
	api.HandleFunc("/records/{id}", h.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/records", h.ListByUser).Methods(http.MethodGet)
	return r
}

func (h *RecordHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	response.Success(w, map[string]string{"status": "ok"})
}

func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec models.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}
	if rec.ID == "" {
		response.BadRequest(w, "record id is required")
		return
	}
	if err := h.validate.Struct(&rec); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored, err := h.repo.Create(r.Context(), &rec)
	if err != nil {
		h.writeError(w, r, err, "failed to create record")
		return
	}
	response.Created(w, stored)
}

func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to fetch record")
		return
	}
	response.Success(w, rec)
}

func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var rec models.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}
	if err := h.validate.Struct(&rec); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored, err := h.repo.Update(r.Context(), id, &rec)
	if err != nil {
		h.writeError(w, r, err, "failed to update record")
		return
	}
	response.Success(w, stored)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, "failed to delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	recs, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err, "failed to list records")
		return
	}
	response.Success(w, recs)
}

// writeError maps repository sentinels onto the status codes sync clients
// classify on: 409 for stale versions, 404 for absent records.
func (h *RecordHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, common.ErrVersionConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, common.ErrorValidation):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error(r.Context(), fallback, "error", err)
		response.InternalError(w, fallback)
	}
}
