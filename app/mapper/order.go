package mapper

import (
	"time"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
	"github.com/amtech-gn/ms-go-orangemoney/app/types"
)

func OrderToResponse(item *entity.Order) *types.Order {
	if item == nil {
		return nil
	}

	return &types.Order{
		Id:            item.ID,
		Number:        item.Number,
		CallerService: item.CallerService,
		CustomerRef:   derefString(item.CustomerRef),
		AmountCents:   item.AmountCents,
		Currency:      item.Currency,
		Status:        entity.OrderStatusLabel(item.Status),
		FailureReason: derefString(item.FailureReason),
		GatewayRef:    derefString(item.GatewayRef),
		ReturnUrl:     item.ReturnURL,
		StockReduced:  item.StockReduced,
		PaidAt:        formatTime(item.PaidAt),
		CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
