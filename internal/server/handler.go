package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/emrgen/suggest/internal/metrics"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/emrgen/suggest/internal/service"
	"github.com/emrgen/suggest/internal/store"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// API exposes the services over HTTP/JSON.
type API struct {
	suggestions *service.SuggestionService
	revisions   *service.RevisionService
	documents   *service.DocumentService
	queue       queue.Queue
}

func NewAPI(suggestions *service.SuggestionService, revisions *service.RevisionService, documents *service.DocumentService, queue queue.Queue) *API {
	return &API{
		suggestions: suggestions,
		revisions:   revisions,
		documents:   documents,
		queue:       queue,
	}
}

// Router builds the route table.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestTimeMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/suggestions", a.submitSuggestion).Methods(http.MethodPost)
	v1.HandleFunc("/suggestions/{id}", a.getSuggestion).Methods(http.MethodGet)
	v1.HandleFunc("/suggestions/{id}/requeue", a.requeueSuggestion).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}/suggestions", a.listSuggestions).Methods(http.MethodGet)

	v1.HandleFunc("/documents", a.createDocument).Methods(http.MethodPost)
	v1.HandleFunc("/documents/{id}", a.getDocument).Methods(http.MethodGet)
	v1.HandleFunc("/documents/{id}", a.editDocument).Methods(http.MethodPut)
	v1.HandleFunc("/documents/{id}/revisions", a.listRevisions).Methods(http.MethodGet)

	v1.HandleFunc("/revisions/{id}", a.getRevision).Methods(http.MethodGet)
	v1.HandleFunc("/revisions/{id}/rollback", a.rollback).Methods(http.MethodPost)

	v1.HandleFunc("/jobs/dead", a.deadLetters).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

func (a *API) submitSuggestion(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if !decode(w, r, &req) {
		return
	}

	suggestion, err := a.suggestions.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, suggestion)
}

func (a *API) getSuggestion(w http.ResponseWriter, r *http.Request) {
	suggestion, err := a.suggestions.GetSuggestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}

func (a *API) requeueSuggestion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.suggestions.Requeue(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(model.StatusPending)})
}

type suggestionPage struct {
	Suggestions []*model.Suggestion `json:"suggestions"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	Total       int64               `json:"total"`
}

func (a *API) listSuggestions(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	suggestions, total, err := a.suggestions.ListSuggestions(r.Context(), mux.Vars(r)["id"], page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	if suggestions == nil {
		suggestions = []*model.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestionPage{
		Suggestions: suggestions,
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
	})
}

func (a *API) createDocument(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDocumentRequest
	if !decode(w, r, &req) {
		return
	}

	doc, err := a.documents.CreateDocument(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := a.documents.GetDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

type editResponse struct {
	Document *model.Document        `json:"document"`
	Revision *service.RevisionEntry `json:"revision"`
}

func (a *API) editDocument(w http.ResponseWriter, r *http.Request) {
	var req service.EditDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	req.DocumentID = mux.Vars(r)["id"]

	doc, revision, err := a.documents.EditDocument(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, editResponse{Document: doc, Revision: revision})
}

func (a *API) listRevisions(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))

	revisions, err := a.revisions.ListRevisions(r.Context(), service.ListRevisionsRequest{
		DocumentID: mux.Vars(r)["id"],
		Page:       page,
		PageSize:   pageSize,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, revisions)
}

func (a *API) getRevision(w http.ResponseWriter, r *http.Request) {
	revision, err := a.revisions.GetRevision(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, revision)
}

type rollbackRequest struct {
	ActorID string `json:"actor_id"`
}

func (a *API) rollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := a.revisions.Rollback(r.Context(), mux.Vars(r)["id"], req.ActorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) deadLetters(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.queue.DeadLetters(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if jobs == nil {
		jobs = []*queue.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body: " + err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error             string `json:"error"`
	RetryAfterMinutes int    `json:"retry_after_minutes,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var limited *service.RateLimitedError
	switch {
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:             err.Error(),
			RetryAfterMinutes: limited.RetryAfterMinutes(),
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrSuggestionNotFound),
		errors.Is(err, service.ErrRevisionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, service.ErrRevisionInactive),
		errors.Is(err, service.ErrSuggestionNotPending),
		errors.Is(err, store.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		logrus.Errorf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("failed to write response: %v", err)
	}
}
