package seatblocks

import (
	"net/http"

	"tripstock/internal/capacity"
	"tripstock/internal/holds"
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

// CreateBlock godoc
// @Summary Withhold seats for staff, VIPs, a channel quota or maintenance
// @Tags seat-blocks
// @Accept json
// @Produce json
// @Param id path string true "capacity id"
// @Param request body CreateBlockRequest true "block"
// @Success 201 {object} response.StandardApiResponse
// @Router /admin/capacities/{id}/blocks [post]
func (c *Controller) CreateBlock(ctx *gin.Context) {
	capacityID, ok := c.ownedCapacity(ctx)
	if !ok {
		return
	}

	var req CreateBlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := c.service.Create(ctx.Request.Context(), req.ToInput(middleware.TenantID(ctx), capacityID))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats blocked", holds.ToAcquireResponse(*result, c.service.Now()), nil)
}

func (c *Controller) ListBlocks(ctx *gin.Context) {
	capacityID, ok := c.ownedCapacity(ctx)
	if !ok {
		return
	}

	activeOnly := ctx.DefaultQuery("active", "true") == "true"
	blocks, err := c.service.List(ctx.Request.Context(), capacityID, activeOnly)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	summary, err := c.service.Summarize(ctx.Request.Context(), capacityID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat blocks retrieved", gin.H{
		"blocks":  holds.ToHoldResponses(blocks, c.service.Now()),
		"summary": summary,
	}, nil)
}

func (c *Controller) ReleaseBlock(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid block ID", nil, nil)
		return
	}

	block, err := c.service.Get(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if block.TenantID != middleware.TenantID(ctx) {
		response.RespondError(ctx, errs.NotFoundf("seat block %s", id))
		return
	}

	released, err := c.service.Release(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat block released", holds.ToHoldResponse(*released, c.service.Now()), nil)
}

func (c *Controller) ownedCapacity(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid capacity ID", nil, nil)
		return uuid.Nil, false
	}
	view, err := c.capacities.Get(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return uuid.Nil, false
	}
	if view.Capacity.TenantID != middleware.TenantID(ctx) {
		response.RespondError(ctx, errs.NotFoundf("capacity %s", id))
		return uuid.Nil, false
	}
	return id, true
}
