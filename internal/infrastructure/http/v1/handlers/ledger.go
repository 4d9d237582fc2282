package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/ledger"
	"gestock/internal/infrastructure/http/v1/dto"
	"gestock/internal/infrastructure/http/v1/middleware"
)

// LedgerHandler handles HTTP requests for stock ledgers.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /ledgers
func (h *LedgerHandler) Create(c *gin.Context) {
	var req dto.CreateLedgerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	l, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, l.ID().String())
}

// Get handles GET /ledgers/:id
func (h *LedgerHandler) Get(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLedger(l))
}

// List handles GET /ledgers
func (h *LedgerHandler) List(c *gin.Context) {
	var req dto.ListLedgersRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	ledgers, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.LedgerResponse, len(ledgers))
	for i, l := range ledgers {
		items[i] = dto.FromLedger(l)
	}

	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// UpdateInfo handles PUT /ledgers/:id
func (h *LedgerHandler) UpdateInfo(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateLedgerInfoRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateInfo(c.Request.Context(), ledgerID, req.Name, req.Address); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "ledger updated")
}

// ChangeCapacity handles PUT /ledgers/:id/capacity
func (h *LedgerHandler) ChangeCapacity(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ChangeCapacityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ChangeCapacity(c.Request.Context(), ledgerID, types.Quantity(req.Capacity)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "capacity changed")
}

// Deactivate handles POST /ledgers/:id/deactivate
func (h *LedgerHandler) Deactivate(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.DeactivateLedgerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), ledgerID, req.InFlightOrders); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "ledger deactivated")
}

// Activate handles POST /ledgers/:id/activate
func (h *LedgerHandler) Activate(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Activate(c.Request.Context(), ledgerID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "ledger activated")
}

// RegisterEntry handles POST /ledgers/:id/entries
func (h *LedgerHandler) RegisterEntry(c *gin.Context) {
	h.registerMovement(c, h.service.RegisterEntry, "entry registered")
}

// RegisterExit handles POST /ledgers/:id/exits
func (h *LedgerHandler) RegisterExit(c *gin.Context) {
	h.registerMovement(c, h.service.RegisterExit, "exit registered")
}

// ConsumeReservation handles POST /ledgers/:id/reservations/consume
func (h *LedgerHandler) ConsumeReservation(c *gin.Context) {
	h.registerMovement(c, h.service.ConsumeReservation, "reservation consumed")
}

// RegisterAdjustment handles POST /ledgers/:id/adjustments
func (h *LedgerHandler) RegisterAdjustment(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, kind, err := req.ToInput(ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RegisterAdjustment(c.Request.Context(), input, kind); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "adjustment registered")
}

// Reserve handles POST /ledgers/:id/reservations
func (h *LedgerHandler) Reserve(c *gin.Context) {
	h.applyReservation(c, h.service.Reserve, "stock reserved")
}

// ReleaseReservation handles POST /ledgers/:id/reservations/release
func (h *LedgerHandler) ReleaseReservation(c *gin.Context) {
	h.applyReservation(c, h.service.ReleaseReservation, "reservation released")
}

// GetBalances handles GET /ledgers/:id/balances
func (h *LedgerHandler) GetBalances(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromBalances(l.AllBalances())
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// GetMovements handles GET /ledgers/:id/movements
func (h *LedgerHandler) GetMovements(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromMovements(l.MovementHistory())
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// GetReservations handles GET /ledgers/:id/reservations
func (h *LedgerHandler) GetReservations(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromReservations(l.ReservationHistory())
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// DefineReorderPoint handles PUT /ledgers/:id/reorder-points
func (h *LedgerHandler) DefineReorderPoint(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReorderPointRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	avg, err := dto.ParseRate(req.AvgDailyConsumption)
	if err != nil {
		h.Error(c, err)
		return
	}
	safety, err := dto.ParseRate(req.SafetyStock)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.DefineReorderPoint(c.Request.Context(), ledgerID, productID, avg, req.LeadTimeDays, safety); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "reorder point defined")
}

// DefineReorderPointFromHistory handles PUT /ledgers/:id/reorder-points/from-history
func (h *LedgerHandler) DefineReorderPointFromHistory(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReorderPointFromHistoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	safety, err := dto.ParseRate(req.SafetyStock)
	if err != nil {
		h.Error(c, err)
		return
	}

	err = h.service.DefineReorderPointFromHistory(
		c.Request.Context(),
		ledgerID, productID,
		types.Quantity(req.TotalConsumed),
		req.LeadTimeDays,
		safety,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "reorder point defined")
}

// GetReorderPoints handles GET /ledgers/:id/reorder-points
func (h *LedgerHandler) GetReorderPoints(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	l, err := h.service.GetByID(c.Request.Context(), ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromReorderPoints(l)
	h.OK(c, dto.ListResponse{Items: items, TotalCount: len(items)})
}

// GetReorderStatus handles GET /ledgers/:id/reorder-points/:productId/status
func (h *LedgerHandler) GetReorderStatus(c *gin.Context) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	reached, err := h.service.HasReachedReorderPoint(c.Request.Context(), ledgerID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ReorderStatusResponse{
		ProductID: productID.String(),
		Reached:   reached,
	})
}

// registerMovement binds a MovementRequest and dispatches to the given
// service operation.
func (h *LedgerHandler) registerMovement(
	c *gin.Context,
	op func(ctx context.Context, input ledger.MovementInput) error,
	message string,
) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput(ledgerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := op(c.Request.Context(), input); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, message)
}

// applyReservation binds a ReservationRequest and dispatches to reserve or
// release.
func (h *LedgerHandler) applyReservation(
	c *gin.Context,
	op func(ctx context.Context, ledgerID, productID id.ID, qty types.Quantity) error,
	message string,
) {
	ledgerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	if err := op(c.Request.Context(), ledgerID, productID, types.Quantity(req.Quantity)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, message)
}

// RegisterRoutes registers ledger routes. Structural changes (capacity,
// deactivation) require the manager role.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.UpdateInfo)
	rg.PUT("/:id/capacity", middleware.RequireRole("manager", "admin"), h.ChangeCapacity)
	rg.POST("/:id/deactivate", middleware.RequireRole("manager", "admin"), h.Deactivate)
	rg.POST("/:id/activate", middleware.RequireRole("manager", "admin"), h.Activate)

	rg.POST("/:id/entries", h.RegisterEntry)
	rg.POST("/:id/exits", h.RegisterExit)
	rg.POST("/:id/adjustments", h.RegisterAdjustment)

	rg.POST("/:id/reservations", h.Reserve)
	rg.POST("/:id/reservations/release", h.ReleaseReservation)
	rg.POST("/:id/reservations/consume", h.ConsumeReservation)
	rg.GET("/:id/reservations", h.GetReservations)

	rg.GET("/:id/balances", h.GetBalances)
	rg.GET("/:id/movements", h.GetMovements)

	rg.PUT("/:id/reorder-points", h.DefineReorderPoint)
	rg.PUT("/:id/reorder-points/from-history", h.DefineReorderPointFromHistory)
	rg.GET("/:id/reorder-points", h.GetReorderPoints)
	rg.GET("/:id/reorder-points/:productId/status", h.GetReorderStatus)
}
