package reads

import (
	"SmartNotice/internal/httpx"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handler struct {
	tracker *Tracker
	logger  *zap.Logger
}

func NewHandler(tracker *Tracker, logger *zap.Logger) *Handler {
	return &Handler{tracker: tracker, logger: logger.Named("reads.http")}
}

// Record counts a read by the caller.
func (h *Handler) Record(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	res, err := h.tracker.RecordRead(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	msg := "First read recorded"
	if !res.IsNewRead {
		msg = fmt.Sprintf("Read count updated to %d", res.ReadCount)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{
		"message":            msg,
		"isNewRead":          res.IsNewRead,
		"readCount":          res.ReadCount,
		"totalUniqueReaders": res.TotalUniqueReaders,
	})
}

func (h *Handler) Report(c echo.Context) error {
	r, err := h.tracker.Aggregate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{"report": r})
}

func (h *Handler) Mine(c echo.Context) error {
	actor, err := httpx.Actor(c)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	s, err := h.tracker.MyReadStatus(c.Request().Context(), c.Param("id"), actor.ID)
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	return httpx.OK(c, http.StatusOK, echo.Map{
		"hasRead":     s.HasRead,
		"readCount":   s.ReadCount,
		"firstReadAt": s.FirstReadAt,
		"lastReadAt":  s.LastReadAt,
	})
}
