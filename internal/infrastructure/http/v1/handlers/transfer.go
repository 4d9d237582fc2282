package handlers

import (
	"github.com/gin-gonic/gin"

	"gestock/internal/core/types"
	"gestock/internal/domain/transfer"
	"gestock/internal/infrastructure/http/v1/dto"
)

// TransferHandler handles HTTP requests for inter-ledger transfers.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sourceID, destinationID, productID, err := req.ParseIDs()
	if err != nil {
		h.Error(c, err)
		return
	}

	rec, err := h.service.TransferByID(
		c.Request.Context(),
		sourceID, destinationID, productID,
		types.Quantity(req.Quantity),
		req.Responsible, req.Reason,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(rec))
}

// List handles GET /transfers
func (h *TransferHandler) List(c *gin.Context) {
	var req dto.ListTransfersRequest
	if !h.BindQuery(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = 100
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	records, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromTransfers(records),
		TotalCount: len(records),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// RegisterRoutes registers transfer routes.
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
}
