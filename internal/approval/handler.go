package approval

import (
	"SmartNotice/internal/httpx"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler exposes the approval workflow over HTTP.
type Handler struct {
	engine *Engine
	logger *zap.Logger
}

func NewHandler(engine *Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, logger: logger.Named("approval.http")}
}

type requestBody struct {
	NoticeID string `json:"notice_id"`
}

func (h *Handler) Request(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var body requestBody
	if err := c.Bind(&body); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}

	res, err := h.engine.RequestApproval(c.Request().Context(), body.NoticeID, actor)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	if res.Outcome.AutoApproved {
		return httpx.OK(c, http.StatusOK, echo.Map{
			"message":       "No approvers found. Notice auto-approved and published.",
			"auto_approved": true,
			"redirect_url":  res.RedirectURL,
		})
	}
	return httpx.OK(c, http.StatusOK, echo.Map{
		"message":         "Approval requests sent successfully",
		"approval_ids":    res.Outcome.ApprovalIDs,
		"approvers_count": len(res.Outcome.ApprovalIDs),
		"redirect_url":    res.RedirectURL,
	})
}

// My lists the caller's approvals with their notices.
func (h *Handler) My(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	approvals, err := h.engine.My(c.Request().Context(), actor)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"approvals": approvals})
}

func (h *Handler) Approve(c echo.Context) error {
	return h.decide(c, DecisionApprove, "Notice approved successfully")
}

func (h *Handler) Reject(c echo.Context) error {
	return h.decide(c, DecisionReject, "Notice rejected")
}

func (h *Handler) Sign(c echo.Context) error {
	return h.decide(c, DecisionSign, "Approval signed successfully")
}

func (h *Handler) decide(c echo.Context, d Decision, message string) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var in DecideInput
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}

	res, err := h.engine.Decide(c.Request().Context(), c.Param("id"), actor, d, in)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	body := echo.Map{"message": message}
	if d == DecisionReject {
		body["rejected_by"] = res.DecidedBy
		body["rejected_at"] = res.DecidedAt
	} else {
		body["approved_by"] = res.DecidedBy
		body["approved_at"] = res.DecidedAt
	}
	return httpx.OK(c, http.StatusOK, body)
}

func (h *Handler) Tracking(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	t, err := h.engine.Tracking(c.Request().Context(), c.Param("notice_id"), actor)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"tracking": t})
}

type settingsBody struct {
	AutoPublishAfterApproval bool `json:"auto_publish_after_approval"`
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var body settingsBody
	if err := c.Bind(&body); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}
	if err := h.engine.UpdateSettings(c.Request().Context(), c.Param("notice_id"), actor, body.AutoPublishAfterApproval); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "Settings updated successfully"})
}

func (h *Handler) Publish(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	at, err := h.engine.Publish(c.Request().Context(), c.Param("notice_id"), actor)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "Notice published successfully", "published_at": at})
}

type otpBody struct {
	ApprovalID string `json:"approval_id"`
	OTP        string `json:"otp"`
}

func (h *Handler) SendOTP(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var body otpBody
	if err := c.Bind(&body); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}
	ttl, err := h.engine.SendOTP(c.Request().Context(), body.ApprovalID, actor)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{
		"message":    "OTP sent to your email",
		"expires_in": int(ttl.Seconds()),
	})
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	if _, err := httpx.Actor(c); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var body otpBody
	if err := c.Bind(&body); err != nil {
		return httpx.BadRequest(c, "Invalid request")
	}
	if err := h.engine.VerifyOTP(c.Request().Context(), body.ApprovalID, body.OTP); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"message": "OTP verified successfully", "valid": true})
}
