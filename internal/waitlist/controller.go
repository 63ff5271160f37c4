package waitlist

import (
	"net/http"
	"strings"

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
	return &Controller{
		service:    service,
		capacities: capacities,
	}
}

// JoinWaitlist godoc
// @Summary Queue for seats on a sold-out capacity record
// @Tags waitlist
// @Accept json
// @Produce json
// @Param id path string true "capacity id"
// @Param request body JoinWaitlistRequest true "entry"
// @Success 201 {object} response.StandardApiResponse
// @Router /capacities/{id}/waitlist [post]
func (c *Controller) JoinWaitlist(ctx *gin.Context) {
	capacityID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid capacity ID", nil, nil)
		return
	}

	var request JoinWaitlistRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	view, err := c.service.Join(ctx.Request.Context(), request.ToInput(middleware.TenantID(ctx), capacityID))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Successfully joined waitlist", ToWaitlistResponse(view.Entry, view.Position), nil)
}

func (c *Controller) GetEntry(ctx *gin.Context) {
	view, ok := c.ownedEntry(ctx)
	if !ok {
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist entry retrieved", ToWaitlistResponse(view.Entry, view.Position), nil)
}

func (c *Controller) LeaveWaitlist(ctx *gin.Context) {
	view, ok := c.ownedEntry(ctx)
	if !ok {
		return
	}

	entry, err := c.service.Leave(ctx.Request.Context(), view.Entry.ID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Successfully left waitlist", ToWaitlistResponse(*entry, 0), nil)
}

// ListEntries lists a record's entries, optionally ?status=WAITING
func (c *Controller) ListEntries(ctx *gin.Context) {
	capacityID, ok := c.ownedCapacity(ctx)
	if !ok {
		return
	}

	var status *Status
	if raw := ctx.Query("status"); raw != "" {
		st := Status(strings.ToUpper(raw))
		status = &st
	}

	entries, err := c.service.List(ctx.Request.Context(), capacityID, status)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist entries retrieved", ToWaitlistResponses(entries), nil)
}

// Promote runs a promotion pass by hand
func (c *Controller) Promote(ctx *gin.Context) {
	capacityID, ok := c.ownedCapacity(ctx)
	if !ok {
		return
	}

	promoted, err := c.service.Promote(ctx.Request.Context(), capacityID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Waitlist promoted", ToWaitlistResponses(promoted), nil)
}

func (c *Controller) ownedEntry(ctx *gin.Context) (*EntryView, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid waitlist entry ID", nil, nil)
		return nil, false
	}

	view, err := c.service.Get(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return nil, false
	}
	if view.Entry.TenantID != middleware.TenantID(ctx) {
		response.RespondError(ctx, errs.NotFoundf("waitlist entry %s", id))
		return nil, false
	}
	return view, true
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
