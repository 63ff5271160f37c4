package capacity

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tripstock/internal/shared/errs"
	"tripstock/internal/shared/middleware"
	"tripstock/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateCapacity godoc
// @Summary Schedule a sellable date instance
// @Tags capacities
// @Accept json
// @Produce json
// @Param request body CreateCapacityRequest true "capacity"
// @Success 201 {object} response.StandardApiResponse
// @Router /admin/capacities [post]
func (c *Controller) CreateCapacity(ctx *gin.Context) {
	var req CreateCapacityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	in, err := req.ToInput(middleware.TenantID(ctx))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Dates must be formatted as YYYY-MM-DD", nil, err.Error())
		return
	}

	created, err := c.service.Create(ctx.Request.Context(), in)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Capacity created", ToCapacityResponse(*created), nil)
}

func (c *Controller) GetCapacity(ctx *gin.Context) {
	id, ok := c.parseID(ctx)
	if !ok {
		return
	}

	view, err := c.service.Get(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	if view.Capacity.TenantID != middleware.TenantID(ctx) {
		response.RespondError(ctx, errs.NotFoundf("capacity %s", id))
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Capacity retrieved", ToCapacityResponse(*view), nil)
}

// ListCapacities serves the calendar: ?from=YYYY-MM-DD&to=YYYY-MM-DD[&resource_id=][&status=OPEN,FULL][&page=][&limit=]
func (c *Controller) ListCapacities(ctx *gin.Context) {
	from, err := time.Parse(dateLayout, ctx.Query("from"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "from must be formatted as YYYY-MM-DD", nil, nil)
		return
	}
	to, err := time.Parse(dateLayout, ctx.Query("to"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "to must be formatted as YYYY-MM-DD", nil, nil)
		return
	}

	filter := CalendarFilter{
		TenantID: middleware.TenantID(ctx),
		From:     from,
		To:       to,
	}
	if raw := ctx.Query("resource_id"); raw != "" {
		resourceID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid resource ID", nil, nil)
			return
		}
		filter.ResourceID = &resourceID
	}
	if raw := ctx.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, Status(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "100"))

	page, err := c.service.ListForCalendar(ctx.Request.Context(), filter)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Capacities retrieved", ToCalendarResponse(page), nil)
}

func (c *Controller) UpdateCapacity(ctx *gin.Context) {
	id, ok := c.ownedID(ctx)
	if !ok {
		return
	}

	var req UpdateInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	updated, err := c.service.Update(ctx.Request.Context(), id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Capacity updated", ToCapacityResponse(*updated), nil)
}

func (c *Controller) CancelCapacity(ctx *gin.Context) {
	id, ok := c.ownedID(ctx)
	if !ok {
		return
	}

	cancelled, err := c.service.Cancel(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Capacity cancelled", ToCapacityResponse(*cancelled), nil)
}

func (c *Controller) OpenSale(ctx *gin.Context) {
	id, ok := c.ownedID(ctx)
	if !ok {
		return
	}

	opened, err := c.service.OpenSale(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Sale opened", ToCapacityResponse(*opened), nil)
}

func (c *Controller) parseID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid capacity ID", nil, nil)
		return uuid.Nil, false
	}
	return id, true
}

// ownedID parses the path id and checks the record belongs to the caller's tenant.
func (c *Controller) ownedID(ctx *gin.Context) (uuid.UUID, bool) {
	id, ok := c.parseID(ctx)
	if !ok {
		return uuid.Nil, false
	}
	view, err := c.service.Get(ctx.Request.Context(), id)
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
