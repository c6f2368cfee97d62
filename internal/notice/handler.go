package notice

import (
	"SmartNotice/internal/httpx"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler exposes notice CRUD and analytics over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("notice.http")}
}

// List returns every notice, newest first.
func (h *Handler) List(c echo.Context) error {
	views, err := h.service.List(c.Request().Context())
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"notices": views, "count": len(views)})
}

func (h *Handler) Create(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var d Draft
	if err := c.Bind(&d); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}

	res, err := h.service.Create(c.Request().Context(), actor, d)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	body := echo.Map{
		"message":          "Notice created successfully",
		"noticeId":         res.Notice.ID.Hex(),
		"requiresApproval": res.Notice.RequiresApproval,
		"status":           res.Notice.Status,
		"approvalStatus":   res.Notice.ApprovalStatus,
		"priority":         res.Notice.Priority,
	}
	if res.Workflow.AutoApproved {
		body["auto_approved"] = true
	}
	if len(res.Workflow.ApprovalIDs) > 0 {
		body["approval_ids"] = res.Workflow.ApprovalIDs
	}
	return httpx.OK(c, http.StatusCreated, body)
}

func (h *Handler) Get(c echo.Context) error {
	view, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"notice": view})
}

// ListByCreator returns one author's notices.
func (h *Handler) ListByCreator(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	views, err := h.service.ListByCreator(c.Request().Context(), actor, c.Param("user_id"))
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"notices": views, "count": len(views)})
}

func (h *Handler) Update(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var ch Changes
	if err := c.Bind(&ch); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}
	if _, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), ch); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "Notice updated successfully"})
}

func (h *Handler) Delete(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	if err := h.service.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "Notice deleted successfully"})
}

func (h *Handler) Analytics(c echo.Context) error {
	a, err := h.service.Analytics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"analytics": a})
}

// Totals returns system-wide notice and read counts.
func (h *Handler) Totals(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	g, err := h.service.Totals(c.Request().Context(), actor)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{
		"totalNotices":          g.TotalNotices,
		"totalReads":            g.TotalReads,
		"averageReadsPerNotice": g.AverageReadsPerNotice,
	})
}
