package holds

import (
	"net/http"
	"strconv"

	"tripstock/internal/capacity"
	"tripstock/internal/shared/errs"
	"tripstock/internal/shared/middleware"
	"tripstock/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service    Service
	capacities capacity.Service
}

func NewController(service Service, capacities capacity.Service) *Controller {
	return &Controller{service: service, capacities: capacities}
}

// AcquireHold godoc
// @Summary Hold seats on a capacity record
// @Tags holds
// @Accept json
// @Produce json
// @Param request body AcquireHoldRequest true "hold"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Failure 503 {object} response.StandardApiResponse
// @Router /holds [post]
func (c *Controller) AcquireHold(ctx *gin.Context) {
	var req AcquireHoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if req.HoldType == HoldTypeSeatBlock {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Seat blocks are managed under /admin", nil, nil)
		return
	}

	result, err := c.service.AcquireHold(ctx.Request.Context(), req.ToInput(middleware.TenantID(ctx)))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats held", ToAcquireResponse(*result, c.service.Now()), nil)
}

func (c *Controller) GetHold(ctx *gin.Context) {
	hold, ok := c.ownedHold(ctx)
	if !ok {
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold retrieved", ToHoldResponse(*hold, c.service.Now()), nil)
}

func (c *Controller) ConfirmHold(ctx *gin.Context) {
	hold, ok := c.ownedHold(ctx)
	if !ok {
		return
	}

	var req ConfirmHoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	confirmed, err := c.service.ConfirmHold(ctx.Request.Context(), hold.ID, req.BookingID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold confirmed", ToHoldResponse(*confirmed, c.service.Now()), nil)
}

func (c *Controller) ReleaseHold(ctx *gin.Context) {
	hold, ok := c.ownedHold(ctx)
	if !ok {
		return
	}

	var req ReleaseHoldRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	released, err := c.service.ReleaseHold(ctx.Request.Context(), hold.ID, req.Reason)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold released", ToHoldResponse(*released, c.service.Now()), nil)
}

// CheckAvailability godoc
// @Summary Quote whether N seats can be held
// @Tags holds
// @Produce json
// @Param id path string true "capacity id"
// @Param seats query int true "seat count"
// @Success 200 {object} response.StandardApiResponse
// @Router /capacities/{id}/availability [get]
func (c *Controller) CheckAvailability(ctx *gin.Context) {
	capacityID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid capacity ID", nil, nil)
		return
	}
	seats, err := strconv.Atoi(ctx.DefaultQuery("seats", "1"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "seats must be a number", nil, nil)
		return
	}

	view, err := c.capacities.Get(ctx.Request.Context(), capacityID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if view.Capacity.TenantID != middleware.TenantID(ctx) {
		response.RespondError(ctx, errs.NotFoundf("capacity %s", capacityID))
		return
	}

	result, err := c.service.CheckAvailability(ctx.Request.Context(), capacityID, seats)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved", ToAvailabilityResponse(*result), nil)
}

func (c *Controller) ownedHold(ctx *gin.Context) (*Hold, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid hold ID", nil, nil)
		return nil, false
	}

	hold, err := c.service.GetHold(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return nil, false
	}
	if hold.TenantID != middleware.TenantID(ctx) {
		response.RespondError(ctx, errs.NotFoundf("hold %s", id))
		return nil, false
	}
	return hold, true
}
