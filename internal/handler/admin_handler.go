// internal/handler/admin_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/aspform-backend/internal/auth"
	appErrors "github.com/unclebandit/aspform-backend/internal/errors"
	"github.com/unclebandit/aspform-backend/internal/httpx"
	"github.com/unclebandit/aspform-backend/internal/model"
	"github.com/unclebandit/aspform-backend/internal/service"
)

const invalidCredentialsMessage = "メールアドレスまたはパスワードが正しくありません"

// AdminHandler holds the dependencies for the operator API under /api/admin.
type AdminHandler struct {
	Auth        *auth.Manager
	Plans       *service.PlanService
	Groups      *service.GroupService
	Submissions *service.SubmissionService
	Dashboard   *service.DashboardService
	Log         *zap.Logger
}

// Routes mounts the admin API. Everything except login needs a session.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAdmin)

			r.Post("/logout", h.Logout)
			r.Get("/dashboard", h.GetDashboard)

			r.Get("/plans", h.ListPlans)
			r.Post("/plans", h.CreatePlan)
			r.Get("/plans/{id}", h.GetPlan)
			r.Put("/plans/{id}", h.UpdatePlan)
			r.Delete("/plans/{id}", h.DeletePlan)

			r.Get("/groups", h.ListGroups)
			r.Post("/groups", h.CreateGroup)
			r.Get("/groups/{id}", h.GetGroup)
			r.Put("/groups/{id}", h.UpdateGroup)
			r.Delete("/groups/{id}", h.DeleteGroup)
			r.Post("/groups/{id}/token", h.RegenerateToken)

			r.Get("/submissions", h.ListSubmissions)
			r.Get("/submissions/{id}", h.GetSubmission)
			r.Get("/submissions/{id}/verify", h.VerifySubmission)
		})
	})
}

// writeServiceError maps service errors onto admin status codes.
func (h *AdminHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *appErrors.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteError(w, http.StatusBadRequest, ve.Message)
	case appErrors.IsNotFound(err):
		httpx.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, appErrors.ErrDuplicateSlug), errors.Is(err, appErrors.ErrDuplicateToken):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error("admin request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

/* session */

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httpx.ReadJSON(w, r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.Auth.Login(w, r, payload.Username, payload.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, invalidCredentialsMessage)
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(w, r); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

/* plans */

func (h *AdminHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Plans.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, plans)
}

func (h *AdminHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, plan)
}

func (h *AdminHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var payload model.PlanUpdate
	if err := httpx.ReadJSON(w, r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	plan, err := h.Plans.Create(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, plan)
}

func (h *AdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var payload model.PlanUpdate
	if err := httpx.ReadJSON(w, r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	plan, err := h.Plans.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, plan)
}

func (h *AdminHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Plans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

/* groups */

func (h *AdminHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Groups.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, groups)
}

func (h *AdminHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.Groups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, group)
}

func (h *AdminHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var payload model.GroupUpdate
	if err := httpx.ReadJSON(w, r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	group, err := h.Groups.Create(r.Context(), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, group)
}

func (h *AdminHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var payload model.GroupUpdate
	if err := httpx.ReadJSON(w, r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	group, err := h.Groups.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, group)
}

func (h *AdminHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	group, err := h.Groups.RegenerateToken(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Log.Info("group token regenerated", zap.String("group_id", group.ID))
	httpx.WriteJSON(w, http.StatusOK, group)
}

func (h *AdminHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.Groups.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

/* submissions */

// ListSubmissions returns a paginated list of submissions
func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := 1
	pageSize := 20

	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(query.Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}

	filter := model.SubmissionFilter{
		PlanID:  query.Get("plan_id"),
		GroupID: query.Get("group_id"),
	}

	subs, pagination, err := h.Submissions.List(r.Context(), page, pageSize, filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       subs,
		"pagination": pagination,
	})
}

func (h *AdminHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}

func (h *AdminHandler) VerifySubmission(w http.ResponseWriter, r *http.Request) {
	res, err := h.Submissions.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
