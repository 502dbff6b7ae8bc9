package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/msp-alerts/internal/model"
	"github.com/jwalitptl/msp-alerts/pkg/errors"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, id uuid.UUID) (model.DispatchResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.DispatchResult), args.Error(1)
}

type mockDeliveries struct {
	mock.Mock
}

func (m *mockDeliveries) ListByOccurrence(ctx context.Context, id uuid.UUID) ([]*model.DeliveryAttempt, error) {
	args := m.Called(ctx, id)
	attempts, _ := args.Get(0).([]*model.DeliveryAttempt)
	return attempts, args.Error(1)
}

func setupRouter(d Dispatcher) *gin.Engine {
	return setupRouterWith(d, new(mockDeliveries))
}

func setupRouterWith(d Dispatcher, l DeliveryLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(d, l).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandler_Dispatch(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		result  model.DispatchResult
		err     error
		status  int
		success bool
	}{
		{
			name:    "success",
			result:  model.DispatchResult{Success: true, Employees: model.Counts{Sent: 2}},
			status:  http.StatusOK,
			success: true,
		},
		{
			name:   "occurrence not found",
			result: model.DispatchResult{Error: "alert occurrence not found"},
			err:    errors.OccurrenceNotFound(id, nil),
			status: http.StatusNotFound,
		},
		{
			name:   "subscriber query failed",
			result: model.DispatchResult{Error: "failed to query employee subscriptions"},
			err:    errors.SubscriberQuery("employee", assert.AnError),
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(mockDispatcher)
			d.On("Dispatch", mock.Anything, id).Return(tt.result, tt.err)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/"+id.String()+"/dispatch", nil)
			setupRouter(d).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var got model.DispatchResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.success, got.Success)
			assert.Equal(t, tt.result.Error, got.Error)
			assert.Equal(t, tt.result.Employees.Sent, got.Employees.Sent)
			d.AssertExpectations(t)
		})
	}
}

func TestHandler_Dispatch_InvalidID(t *testing.T) {
	d := new(mockDispatcher)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/not-a-uuid/dispatch", nil)
	setupRouter(d).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestHandler_ListDeliveries(t *testing.T) {
	id := uuid.New()
	attempt := model.NewSentAttempt(id, model.SubscriberEmployee, uuid.New(), model.ChannelEmail, "ops@example.com", "en", time.Now())

	l := new(mockDeliveries)
	l.On("ListByOccurrence", mock.Anything, id).Return([]*model.DeliveryAttempt{attempt}, nil).Once()
	l.On("ListByOccurrence", mock.Anything, id).Return(nil, assert.AnError).Once()
	r := setupRouterWith(new(mockDispatcher), l)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/"+id.String()+"/deliveries", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool                     `json:"success"`
		Data    []*model.DeliveryAttempt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ops@example.com", body.Data[0].Recipient)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/"+id.String()+"/deliveries", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	l.AssertExpectations(t)
}
