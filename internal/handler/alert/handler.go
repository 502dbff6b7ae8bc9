package alert

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
	"github.com/jwalitptl/msp-alerts/pkg/httputil"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, occurrenceID uuid.UUID) (model.DispatchResult, error)
}

// DeliveryLister returns the recorded attempts of one occurrence.
type DeliveryLister interface {
	ListByOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]*model.DeliveryAttempt, error)
}

type Handler struct {
	dispatcher Dispatcher
	deliveries DeliveryLister
}

func NewHandler(dispatcher Dispatcher, deliveries DeliveryLister) *Handler {
	return &Handler{dispatcher: dispatcher, deliveries: deliveries}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.POST("/:id/dispatch", h.Dispatch)
		alerts.GET("/:id/deliveries", h.ListDeliveries)
	}
}

// Dispatch fans one occurrence out to its subscribers. The body is the
// aggregate result, also on failure.
func (h *Handler) Dispatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid alert occurrence id", err))
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(errors.HTTPStatus(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListDeliveries(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid alert occurrence id", err))
		return
	}

	attempts, err := h.deliveries.ListByOccurrence(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	if attempts == nil {
		attempts = []*model.DeliveryAttempt{}
	}
	httputil.RespondWithSuccess(c, attempts)
}
