package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"campaigner/internal/campaign"
	"campaigner/internal/domain"
	"campaigner/internal/observability"
	"campaigner/internal/store"
	"campaigner/internal/util"
)

type TemplateAdmin interface {
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	GetTemplate(ctx context.Context, sequence int) (domain.Template, bool, error)
	UpsertTemplate(ctx context.Context, in store.TemplateUpsert) error
	DeleteTemplate(ctx context.Context, sequence int) (bool, error)
}

type API struct {
	Enroll     *campaign.Service
	Dispatcher *campaign.Dispatcher
	Reporter   *campaign.Reporter
	Templates  TemplateAdmin
}

func (a *API) Register(m *mux.Router) {
	m.HandleFunc("/v1/subjects", a.handleEnroll).Methods(http.MethodPost)
	m.HandleFunc("/v1/subjects", a.handleListSubjects).Methods(http.MethodGet)
	m.HandleFunc("/v1/subjects/{id}/history", a.handleHistory).Methods(http.MethodGet)
	m.HandleFunc("/v1/subjects/{id}/status", a.handleSubjectStatus).Methods(http.MethodPut)
	m.HandleFunc("/v1/dispatch", a.handleDispatch).Methods(http.MethodPost)
	m.HandleFunc("/v1/templates", a.handleListTemplates).Methods(http.MethodGet)
	m.HandleFunc("/v1/templates/{sequence}", a.handleEditTemplate).Methods(http.MethodPut)
	m.HandleFunc("/v1/templates/{sequence}", a.handleDeleteTemplate).Methods(http.MethodDelete)
	m.HandleFunc("/v1/reports/summary", a.handleSummary).Methods(http.MethodGet)
}

func (a *API) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req domain.EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.APIRequests.WithLabelValues("/v1/subjects", "400").Inc()
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	id, err := a.Enroll.EnrollSubject(r.Context(), req, util.NowUTC())
	switch {
	case errors.Is(err, domain.ErrValidation):
		observability.APIRequests.WithLabelValues("/v1/subjects", "400").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrDuplicate):
		observability.APIRequests.WithLabelValues("/v1/subjects", "409").Inc()
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		slog.Error("enroll subject failed", "err", err, "email", req.Email)
		observability.APIRequests.WithLabelValues("/v1/subjects", "502").Inc()
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}

	observability.APIRequests.WithLabelValues("/v1/subjects", "201").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"subjectId": id})
}

func (a *API) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := a.Enroll.ListSubjects(r.Context())
	if err != nil {
		slog.Error("list subjects failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, subjects)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, ErrMissingID, http.StatusBadRequest)
		return
	}
	entries, err := a.Reporter.History(r.Context(), id)
	if err != nil {
		slog.Error("delivery history failed", "err", err, "id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, entries)
}

// handleDispatch runs one manual dispatch pass. A 200 with zero counts means
// nothing was due; a 200 with failed>0 means sends failed but were recorded;
// a 502 means the store itself was unreachable.
func (a *API) handleDispatch(w http.ResponseWriter, r *http.Request) {
	report, err := a.Dispatcher.ProcessDue(r.Context(), util.NowUTC())
	if err != nil {
		slog.Error("dispatch pass failed", "err", err, "attempted", report.Attempted)
		observability.APIRequests.WithLabelValues("/v1/dispatch", "502").Inc()
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	observability.APIRequests.WithLabelValues("/v1/dispatch", "200").Inc()
	writeJSON(w, report)
}

func (a *API) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := a.Templates.ListTemplates(r.Context())
	if err != nil {
		slog.Error("list templates failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, templates)
}

type templateEditRequest struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	DelaySeconds int64  `json:"delaySeconds"`
}

func (a *API) handleEditTemplate(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(mux.Vars(r)["sequence"])
	if err != nil || seq < 1 {
		http.Error(w, ErrBadSequence, http.StatusBadRequest)
		return
	}
	var req templateEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if req.Subject == "" || req.Body == "" || req.DelaySeconds < 0 {
		http.Error(w, "subject and body required, delay must be non-negative", http.StatusBadRequest)
		return
	}

	err = a.Templates.UpsertTemplate(r.Context(), store.TemplateUpsert{
		Sequence: seq,
		Subject:  req.Subject,
		Body:     req.Body,
		Delay:    time.Duration(req.DelaySeconds) * time.Second,
		Now:      util.NowUTC(),
	})
	if err != nil {
		slog.Error("template upsert failed", "err", err, "sequence", seq)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subjectStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleSubjectStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, ErrMissingID, http.StatusBadRequest)
		return
	}
	var req subjectStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	err := a.Enroll.SetSubjectStatus(r.Context(), id, domain.SubjectStatus(req.Status))
	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	case err != nil:
		slog.Error("subject status update failed", "err", err, "id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(mux.Vars(r)["sequence"])
	if err != nil || seq < 1 {
		http.Error(w, ErrBadSequence, http.StatusBadRequest)
		return
	}
	found, err := a.Templates.DeleteTemplate(r.Context(), seq)
	if err != nil {
		slog.Error("template delete failed", "err", err, "sequence", seq)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Reporter.Summary(r.Context())
	if err != nil {
		slog.Error("summary failed", "err", err)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, summary)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
