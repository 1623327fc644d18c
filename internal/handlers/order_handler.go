package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace/internal/models"
	"marketplace/internal/services"
)

type OrderHandler struct {
	orders      services.OrderService
	status      services.StatusService
	assignments services.AssignmentService
	analytics   services.AnalyticsService
}

func NewOrderHandler(
	orders services.OrderService,
	status services.StatusService,
	assignments services.AssignmentService,
	analytics services.AnalyticsService,
) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		status:      status,
		assignments: assignments,
		analytics:   analytics,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}

	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	view, err := h.orders.CreateDraft(c.Request.Context(), actorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *OrderHandler) SubmitCheckout(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.orders.SubmitCheckout(c.Request.Context(), actorID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}

	opts, ok := parseListOptions(c)
	if !ok {
		return
	}

	views, err := h.orders.ListOrders(c.Request.Context(), actorID, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": views, "count": len(views)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.orders.GetOrder(c.Request.Context(), actorID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) Summary(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.orders.Summary(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *OrderHandler) Recent(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "limit must be a number"})
			return
		}
		limit = n
	}

	views, err := h.orders.Recent(c.Request.Context(), actorID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": views, "count": len(views)})
}

func (h *OrderHandler) VendorDashboard(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	vendorID, ok := optionalUUIDQuery(c, "vendor_id")
	if !ok {
		return
	}

	view, err := h.analytics.Dashboard(c.Request.Context(), actorID, vendorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) UpdateVendorDashboard(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	vendorID, ok := optionalUUIDQuery(c, "vendor_id")
	if !ok {
		return
	}

	var input services.DashboardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	prefs, err := h.analytics.UpdateDashboard(c.Request.Context(), actorID, vendorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *OrderHandler) GetTransitions(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	transitions, err := h.status.AllowedTransitions(c.Request.Context(), actorID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": transitions})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		NewStatus string `json:"new_status"`
		Note      string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	view, err := h.status.UpdateStatus(c.Request.Context(), actorID, orderID, models.OrderStatus(req.NewStatus), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) AssignOrder(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}
	employeeID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "employee_id must be a valid uuid"})
		return
	}

	view, err := h.assignments.Assign(c.Request.Context(), actorID, orderID, employeeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) GetHistory(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.orders.StatusHistory(c.Request.Context(), actorID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

func (h *OrderHandler) GetAssignments(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	assignments, err := h.orders.AssignmentHistory(c.Request.Context(), actorID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments, "count": len(assignments)})
}

func (h *OrderHandler) AddItem(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var input services.ItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	view, err := h.orders.AddItem(c.Request.Context(), actorID, orderID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) UpdateItem(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	var patch services.ItemPatchInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid request format"})
		return
	}

	view, err := h.orders.UpdateItem(c.Request.Context(), actorID, orderID, itemID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	actorID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}

	view, err := h.orders.RemoveItem(c.Request.Context(), actorID, orderID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func parseListOptions(c *gin.Context) (services.ListOptions, bool) {
	var opts services.ListOptions

	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "unknown status filter"})
			return opts, false
		}
		opts.Status = &status
	}
	if c.Query("unassigned") == "true" {
		opts.Unassigned = true
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "limit must be a non-negative number"})
			return opts, false
		}
		opts.Limit = n
	}

	var ok bool
	if opts.VendorID, ok = optionalUUIDQuery(c, "vendor_id"); !ok {
		return opts, false
	}
	if opts.CustomerID, ok = optionalUUIDQuery(c, "customer_id"); !ok {
		return opts, false
	}
	return opts, true
}

func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: name + " must be a valid uuid"})
		return nil, false
	}
	return &id, true
}

func parseItemID(c *gin.Context) (uint, bool) {
	raw := c.Param("item_id")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "item_id must be a number"})
		return 0, false
	}
	return uint(n), true
}
