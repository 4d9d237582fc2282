package dto

import (
	"time"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/domain/transfer"
)

// --- Request DTOs ---

// TransferRequest is the request body for moving stock between ledgers.
type TransferRequest struct {
	SourceID      string `json:"sourceId" binding:"required"`
	DestinationID string `json:"destinationId" binding:"required"`
	ProductID     string `json:"productId" binding:"required"`
	Quantity      int64  `json:"quantity" binding:"required,gt=0"`
	Responsible   string `json:"responsible" binding:"required"`
	Reason        string `json:"reason,omitempty"`
}

// ParseIDs parses and validates the three id fields.
func (r *TransferRequest) ParseIDs() (sourceID, destinationID, productID id.ID, err error) {
	if sourceID, err = id.Parse(r.SourceID); err != nil {
		return sourceID, destinationID, productID, apperror.NewValidation("invalid source id")
	}
	if destinationID, err = id.Parse(r.DestinationID); err != nil {
		return sourceID, destinationID, productID, apperror.NewValidation("invalid destination id")
	}
	if productID, err = id.Parse(r.ProductID); err != nil {
		return sourceID, destinationID, productID, apperror.NewValidation("invalid product id")
	}
	return sourceID, destinationID, productID, nil
}

// ListTransfersRequest contains transfer history filter parameters.
type ListTransfersRequest struct {
	LedgerID  string     `form:"ledgerId"`
	ProductID string     `form:"productId"`
	FromDate  *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate    *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit" binding:"min=0,max=1000"`
	Offset    int        `form:"offset" binding:"min=0"`
}

// ToFilter converts query parameters to a repository filter.
func (r *ListTransfersRequest) ToFilter() (transfer.ListFilter, error) {
	filter := transfer.ListFilter{
		FromDate: r.FromDate,
		ToDate:   r.ToDate,
		Limit:    r.Limit,
		Offset:   r.Offset,
	}
	if r.LedgerID != "" {
		ledgerID, err := id.Parse(r.LedgerID)
		if err != nil {
			return transfer.ListFilter{}, apperror.NewValidation("invalid ledger id")
		}
		filter.LedgerID = &ledgerID
	}
	if r.ProductID != "" {
		productID, err := id.Parse(r.ProductID)
		if err != nil {
			return transfer.ListFilter{}, apperror.NewValidation("invalid product id")
		}
		filter.ProductID = &productID
	}
	return filter, nil
}

// --- Response DTOs ---

// TransferResponse is the audit entry for one completed transfer.
type TransferResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"productId"`
	SourceID      string    `json:"sourceId"`
	DestinationID string    `json:"destinationId"`
	Quantity      int64     `json:"quantity"`
	Responsible   string    `json:"responsible"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// FromTransfer creates response DTO from a transfer record.
func FromTransfer(rec *transfer.Record) *TransferResponse {
	return &TransferResponse{
		ID:            rec.ID.String(),
		ProductID:     rec.ProductID.String(),
		SourceID:      rec.SourceID.String(),
		DestinationID: rec.DestinationID.String(),
		Quantity:      rec.Quantity.Int64(),
		Responsible:   rec.Responsible,
		Reason:        rec.Reason,
		OccurredAt:    rec.OccurredAt,
	}
}

// FromTransfers converts a list of transfer records.
func FromTransfers(records []transfer.Record) []*TransferResponse {
	out := make([]*TransferResponse, len(records))
	for i := range records {
		out[i] = FromTransfer(&records[i])
	}
	return out
}
