package holds

import (
	"bytes"
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

	"tripstock/internal/capacity"
	"tripstock/internal/shared/config"
	"tripstock/internal/shared/errs"
	"tripstock/internal/shared/middleware"
)

const controllerSecret = "holds-controller-secret"

type mockService struct {
	mock.Mock
}

func (m *mockService) AcquireHold(ctx context.Context, in AcquireInput) (*AcquireResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*AcquireResult)
	return res, args.Error(1)
}

func (m *mockService) ConfirmHold(ctx context.Context, holdID, bookingID uuid.UUID) (*Hold, error) {
	args := m.Called(ctx, holdID, bookingID)
	h, _ := args.Get(0).(*Hold)
	return h, args.Error(1)
}

func (m *mockService) ReleaseHold(ctx context.Context, holdID uuid.UUID, reason ReleaseReason) (*Hold, error) {
	args := m.Called(ctx, holdID, reason)
	h, _ := args.Get(0).(*Hold)
	return h, args.Error(1)
}

func (m *mockService) CheckAvailability(ctx context.Context, capacityID uuid.UUID, seatCount int) (*AvailabilityResult, error) {
	args := m.Called(ctx, capacityID, seatCount)
	res, _ := args.Get(0).(*AvailabilityResult)
	return res, args.Error(1)
}

func (m *mockService) GetHold(ctx context.Context, id uuid.UUID) (*Hold, error) {
	args := m.Called(ctx, id)
	h, _ := args.Get(0).(*Hold)
	return h, args.Error(1)
}

func (m *mockService) ListHolds(ctx context.Context, capacityID uuid.UUID, activeOnly bool, holdType *HoldType) ([]Hold, error) {
	args := m.Called(ctx, capacityID, activeOnly, holdType)
	holds, _ := args.Get(0).([]Hold)
	return holds, args.Error(1)
}

func (m *mockService) ReleaseConfirmedSeats(ctx context.Context, capacityID uuid.UUID, seats int) (*capacity.CapacityWithAvailability, error) {
	args := m.Called(ctx, capacityID, seats)
	res, _ := args.Get(0).(*capacity.CapacityWithAvailability)
	return res, args.Error(1)
}

func (m *mockService) ReclaimExpired(ctx context.Context, batch int) (int, error) {
	args := m.Called(ctx, batch)
	return args.Int(0), args.Error(1)
}

func (m *mockService) AddSeatListener(capacity.SeatListener) {}

func (m *mockService) Now() time.Time {
	return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
}

type controllerFixture struct {
	svc      *mockService
	engine   *gin.Engine
	token    string
	tenantID uuid.UUID
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &mockService{}
	controller := NewController(svc, nil)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: controllerSecret}}

	engine := gin.New()
	group := engine.Group("/holds", middleware.JWTAuthWithConfig(cfg), middleware.Tenant())
	group.POST("", controller.AcquireHold)
	group.GET("/:id", controller.GetHold)
	group.DELETE("/:id", controller.ReleaseHold)

	tenantID := uuid.New()
	token, err := middleware.IssueAccessToken(controllerSecret, uuid.New(), middleware.RoleUser, tenantID, time.Hour)
	require.NoError(t, err)

	t.Cleanup(func() { svc.AssertExpectations(t) })
	return &controllerFixture{svc: svc, engine: engine, token: token, tenantID: tenantID}
}

func (f *controllerFixture) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Errors struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Errors.Code
}

func TestController_AcquireHoldErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"sold out", errs.CapacityExceededf("2 seats requested, 1 bookable"), http.StatusConflict, "sold_out"},
		{"contention", errs.TransientConflictf("gave up after 5 attempts"), http.StatusServiceUnavailable, "try_again"},
		{"sale closed", ErrSaleClosed, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture(t)
			capacityID := uuid.New()
			f.svc.On("AcquireHold", mock.Anything, mock.MatchedBy(func(in AcquireInput) bool {
				return in.TenantID == f.tenantID && in.CapacityID == capacityID && in.Source == SourceWebsite
			})).Return(nil, tt.err).Once()

			w := f.request(http.MethodPost, "/holds", map[string]interface{}{
				"capacity_id": capacityID,
				"seat_count":  2,
				"hold_type":   HoldTypeCart,
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestController_AcquireHoldRejectsSeatBlocks(t *testing.T) {
	f := newControllerFixture(t)

	w := f.request(http.MethodPost, "/holds", map[string]interface{}{
		"capacity_id": uuid.New(),
		"seat_count":  2,
		"hold_type":   HoldTypeSeatBlock,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.svc.AssertNotCalled(t, "AcquireHold", mock.Anything, mock.Anything)
}

func TestController_HoldsAreTenantScoped(t *testing.T) {
	f := newControllerFixture(t)
	foreign := &Hold{ID: uuid.New(), TenantID: uuid.New(), CapacityID: uuid.New(), SeatCount: 1}
	f.svc.On("GetHold", mock.Anything, foreign.ID).Return(foreign, nil).Twice()

	assert.Equal(t, http.StatusNotFound, f.request(http.MethodGet, "/holds/"+foreign.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, f.request(http.MethodDelete, "/holds/"+foreign.ID.String(), nil).Code)
	f.svc.AssertNotCalled(t, "ReleaseHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_ReleaseHoldWithReason(t *testing.T) {
	f := newControllerFixture(t)
	now := f.svc.Now()
	reason := ReasonManual
	h := &Hold{ID: uuid.New(), TenantID: f.tenantID, CapacityID: uuid.New(), SeatCount: 2, ExpiresAt: now.Add(time.Minute)}
	released := *h
	released.ReleasedAt = &now
	released.ReleaseReason = &reason

	f.svc.On("GetHold", mock.Anything, h.ID).Return(h, nil).Once()
	f.svc.On("ReleaseHold", mock.Anything, h.ID, ReasonManual).Return(&released, nil).Once()

	w := f.request(http.MethodDelete, "/holds/"+h.ID.String(), map[string]interface{}{"reason": ReasonManual})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestController_ReleaseHoldRejectsExpiredReason(t *testing.T) {
	f := newControllerFixture(t)
	now := f.svc.Now()
	h := &Hold{ID: uuid.New(), TenantID: f.tenantID, CapacityID: uuid.New(), SeatCount: 2, ExpiresAt: now.Add(time.Minute)}

	f.svc.On("GetHold", mock.Anything, h.ID).Return(h, nil).Once()

	w := f.request(http.MethodDelete, "/holds/"+h.ID.String(), map[string]interface{}{"reason": ReasonExpired})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.svc.AssertNotCalled(t, "ReleaseHold", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_GetHoldBadID(t *testing.T) {
	f := newControllerFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.request(http.MethodGet, "/holds/not-a-uuid", nil).Code)
}
