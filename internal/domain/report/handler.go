package report

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alertavecinal/alerta-api/internal/domain/user"
	"github.com/alertavecinal/alerta-api/internal/middleware"
	"github.com/alertavecinal/alerta-api/internal/pkg/response"
	"github.com/alertavecinal/alerta-api/internal/pkg/validator"
)

// Handler handles report HTTP requests
type Handler struct {
	service *Service
	users   user.Repository
}

// NewHandler creates a new report handler
func NewHandler(service *Service, users user.Repository) *Handler {
	return &Handler{service: service, users: users}
}

// Create handles POST /reports
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	userID := middleware.GetUserID(r.Context())
	userName := h.displayName(r, userID)

	reportType, _ := ParseReportType(req.Type)
	report, err := h.service.Create(r.Context(), CreateInput{
		UserID:      userID,
		UserName:    userName,
		Title:       req.Title,
		Description: req.Description,
		Type:        reportType,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Address:     req.Address,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, report)
}

// displayName resolves the author's current profile name, falling back
// to the name embedded in the token when the profile read fails
func (h *Handler) displayName(r *http.Request, userID string) string {
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			log.Warn().Str("user_id", userID).Err(err).Msg("Profile lookup failed, using token name")
		}
		return middleware.GetUserName(r.Context())
	}
	return u.Name
}

// GetByID handles GET /reports/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	report, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !h.canSee(r, report) {
		response.NotFound(w, "Report not found")
		return
	}

	response.OK(w, report)
}

// canSee hides pending and rejected reports from everyone except their
// author and the moderation team
func (h *Handler) canSee(r *http.Request, report *Report) bool {
	if report.Status == StatusApproved {
		return true
	}
	role := middleware.GetRole(r.Context())
	if role == "moderator" || role == "admin" {
		return true
	}
	return report.UserID == middleware.GetUserID(r.Context())
}

// List handles GET /reports
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	// The public feed only carries approved reports; moderators see
	// whatever they filtered for, authors see their own in any status
	role := middleware.GetRole(r.Context())
	if role != "moderator" && role != "admin" && f.UserID != middleware.GetUserID(r.Context()) {
		approved := StatusApproved
		f.Status = &approved
	}

	reports, err := h.service.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMeta(w, reports, response.Meta{Total: len(reports)})
}

// Mine handles GET /reports/mine
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	f.UserID = middleware.GetUserID(r.Context())

	reports, err := h.service.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMeta(w, reports, response.Meta{Total: len(reports)})
}

// Delete handles DELETE /reports/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	actor := Actor{
		ID:    middleware.GetUserID(r.Context()),
		Admin: middleware.GetRole(r.Context()) == "admin",
	}

	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		h.writeError(w, err)
		return
	}

	response.NoContent(w)
}

// Queue handles GET /moderation/queue
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	pending := StatusPending
	f.Status = &pending

	reports, err := h.service.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMeta(w, reports, response.Meta{Total: len(reports)})
}

// Approve handles POST /moderation/reports/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	var req ApproveRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	report, err := h.service.Approve(r.Context(), id, h.moderator(r), req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, report)
}

// Reject handles POST /moderation/reports/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	var req RejectRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	report, err := h.service.Reject(r.Context(), id, h.moderator(r), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, report)
}

// Edit handles PATCH /moderation/reports/{id}
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	var req EditReportRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	fields := EditFields{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
	}
	if req.Type != nil {
		t, _ := ParseReportType(*req.Type)
		fields.Type = &t
	}

	report, err := h.service.Edit(r.Context(), id, h.moderator(r), fields)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, report)
}

// RequestInfo handles POST /moderation/reports/{id}/request-info
func (h *Handler) RequestInfo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	var req RequestInfoRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.service.RequestInfo(r.Context(), id, h.moderator(r), req.Message); err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]string{"message": "Information request sent"})
}

// History handles GET /moderation/reports/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid report ID")
		return
	}

	newestFirst := r.URL.Query().Get("order") != "oldest"
	entries, err := h.service.History(r.Context(), id, newestFirst)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.WithMeta(w, entries, response.Meta{Total: len(entries)})
}

// Stats handles GET /moderation/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, stats)
}

// Refresh handles POST /admin/reports/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	mirrored, err := h.service.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, map[string]int{"mirrored": mirrored})
}

func (h *Handler) moderator(r *http.Request) Moderator {
	return Moderator{
		ID:   middleware.GetUserID(r.Context()),
		Name: middleware.GetUserName(r.Context()),
	}
}

// filterFromQuery parses the shared list query parameters
func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		UserID: q.Get("user_id"),
		Urgent: q.Get("urgent") == "true",
		Search: q.Get("q"),
	}

	if s := q.Get("status"); s != "" {
		parsed, ok := ParseStatus(s)
		if !ok {
			return Filter{}, errors.New("invalid status filter")
		}
		f.Status = &parsed
	}

	if t := q.Get("type"); t != "" {
		parsed, ok := ParseReportType(t)
		if !ok {
			return Filter{}, errors.New("invalid type filter")
		}
		f.Type = &parsed
	}

	return f, nil
}

// writeError maps domain errors onto HTTP responses
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Report not found")
	case errors.Is(err, ErrValidation):
		response.Error(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrPermission):
		response.Forbidden(w, "You are not allowed to perform this action")
	case errors.Is(err, ErrNetwork):
		response.ServiceUnavailable(w, "Remote store unavailable, try again later")
	default:
		log.Error().Err(err).Msg("Unhandled error in report handler")
		response.InternalError(w)
	}
}
