package reminder

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/internal/service/reminder"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/httputil"
)

type StatusProvider interface {
	Status() reminder.Status
}

type Completer interface {
	Complete(ctx context.Context, requestID uuid.UUID, kind model.ActionKind) (bool, error)
}

type Handler struct {
	status    StatusProvider
	completer Completer
}

// NewHandler accepts a nil status provider or completer; the matching
// routes are then not registered.
func NewHandler(status StatusProvider, completer Completer) *Handler {
	return &Handler{status: status, completer: completer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	if h.status != nil {
		r.GET("/reminders/status", h.Status)
	}
	if h.completer != nil {
		r.POST("/service-requests/:id/actions/:action/complete", h.Complete)
	}
}

func (h *Handler) Status(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.status.Status())
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid service request id", err))
		return
	}

	cleared, err := h.completer.Complete(c.Request.Context(), id, model.ActionKind(c.Param("action")))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !cleared {
		c.JSON(http.StatusConflict, httputil.Response{
			Success: false,
			Error:   &httputil.Error{Code: http.StatusConflict, Message: "action is not pending"},
		})
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"service_request_id": id, "action": c.Param("action")})
}
