// internal/controller/consent_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/flow"
	"github.com/unclebandit/aspform-backend/internal/httpx"
	"github.com/unclebandit/aspform-backend/internal/metrics"
	"github.com/unclebandit/aspform-backend/internal/service"
)

// ConsentController serves the customer-facing flow under /api/p/{slug}.
type ConsentController struct {
	ConsentService *service.ConsentService
	Drafts         *flow.CookieStore
	Log            *zap.Logger
}

func (c *ConsentController) Routes(r chi.Router) {
	r.Get("/api/p/{slug}", c.ResolveAccess)
	r.Post("/api/p/{slug}/submit", c.Submit)
	r.Get("/api/p/{slug}/draft", c.GetDraft)
	r.Put("/api/p/{slug}/draft", c.SaveDraft)
	r.Delete("/api/p/{slug}/draft", c.ClearDraft)
}

func (c *ConsentController) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	fe, ok := appErrors.AsFlowError(err)
	if !ok {
		fe = appErrors.Internal(err).(*appErrors.FlowError)
	}
	if fe.Status >= http.StatusInternalServerError {
		c.Log.Error("consent flow failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(fe.Code)),
			zap.Error(fe.Err))
	}
	httpx.WriteJSON(w, fe.Status, map[string]string{
		"error":   string(fe.Code),
		"message": fe.Code.Message(),
	})
}

func (c *ConsentController) ResolveAccess(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	token := r.URL.Query().Get("u")

	view, err := c.ConsentService.ResolveAccess(r.Context(), slug, token)
	if err != nil {
		metrics.RecordAccessResolution(resultLabel(err))
		c.writeFlowError(w, r, err)
		return
	}
	metrics.RecordAccessResolution("ok")
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (c *ConsentController) Submit(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var body service.SubmitRequest
	if err := httpx.ReadJSON(w, r, &body); err != nil {
		metrics.RecordSubmission(string(appErrors.CodeInvalidRequest))
		c.writeFlowError(w, r, appErrors.NewFlowError(appErrors.CodeInvalidRequest))
		return
	}

	result, err := c.ConsentService.Submit(r.Context(), slug, body, r.UserAgent())
	if err != nil {
		metrics.RecordSubmission(resultLabel(err))
		c.writeFlowError(w, r, err)
		return
	}
	metrics.RecordSubmission("ok")

	if c.Drafts != nil {
		c.Drafts.Clear(w, slug)
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// GetDraft returns the draft saved for this slug and token, or 204.
func (c *ConsentController) GetDraft(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	token := r.URL.Query().Get("u")
	if token == "" {
		c.writeFlowError(w, r, appErrors.NewFlowError(appErrors.CodeMissingToken))
		return
	}

	d, err := c.Drafts.Load(r, slug, token)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

type draftRequest struct {
	Step              flow.Step `json:"step"`
	CustomerName      string    `json:"customer_name"`
	CustomerEmail     string    `json:"customer_email"`
	CustomerPhone     string    `json:"customer_phone"`
	ContractStartDate string    `json:"contract_start_date"`
	CheckedItems      []string  `json:"checked_items"`
}

// SaveDraft merges the posted fields into the draft, moves it to the
// requested step and stores it back in the cookie.
func (c *ConsentController) SaveDraft(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	token := r.URL.Query().Get("u")

	view, err := c.ConsentService.ResolveAccess(r.Context(), slug, token)
	if err != nil {
		c.writeFlowError(w, r, err)
		return
	}

	var body draftRequest
	if err := httpx.ReadJSON(w, r, &body); err != nil {
		c.writeFlowError(w, r, appErrors.NewFlowError(appErrors.CodeInvalidRequest))
		return
	}

	d, err := c.Drafts.Load(r, slug, token)
	if err != nil {
		d = flow.NewDraft(slug, token)
	}
	d.CustomerName = body.CustomerName
	d.CustomerEmail = body.CustomerEmail
	d.CustomerPhone = body.CustomerPhone
	d.ContractStartDate = body.ContractStartDate
	d.CheckedItems = body.CheckedItems

	step := body.Step
	if step == "" {
		step = d.Step
	}
	if err := d.Advance(step, view.Plan.ChecklistItems); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error":   string(appErrors.CodeInvalidRequest),
			"message": err.Error(),
		})
		return
	}

	if err := c.Drafts.Save(w, d); err != nil {
		c.writeFlowError(w, r, appErrors.Internal(err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (c *ConsentController) ClearDraft(w http.ResponseWriter, r *http.Request) {
	c.Drafts.Clear(w, chi.URLParam(r, "slug"))
	w.WriteHeader(http.StatusNoContent)
}

func resultLabel(err error) string {
	if fe, ok := appErrors.AsFlowError(err); ok {
		return string(fe.Code)
	}
	return string(appErrors.CodeInvalidRequest)
}
