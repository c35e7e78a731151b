package service

import (
	"context"
	"strconv"
	"time"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
	"github.com/amtech-gn/ms-go-orangemoney/app/metrics"
)

// RunReconcileBatch polls the provider for orders stuck awaiting payment
// whose notification never arrived, and applies the same guarded transitions
// the notification path would have.
func (s *OrderService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.ordersCfg.ReconcileStaleAfter)
	items, err := s.orderRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}

		gw, err := s.gatewayReg.Get(order.Gateway)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		status, err := gw.GetPaymentStatus(ctx, strconv.FormatUint(order.ID, 10))
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		switch status {
		case entity.OrderStatusPaid:
			won, err := s.orderRepo.MarkPaid(ctx, order.ID, nil, now)
			if err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
			if won {
				metrics.OrdersReconciled.Inc()
				oldStatus := order.Status
				_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
					OrderID:   order.ID,
					EventType: "order_reconciled",
					OldStatus: &oldStatus,
					NewStatus: entity.OrderStatusPaid,
					CreatedAt: now,
				})
				s.applyPaidSideEffects(ctx, order, now)
			}
		case entity.OrderStatusFailed:
			won, err := s.orderRepo.MarkFailed(ctx, order.ID, "reconciled as failed with provider", now)
			if err != nil {
				firstErr = keepFirstErr(firstErr, err)
				continue
			}
			if won {
				metrics.OrdersReconciled.Inc()
				oldStatus := order.Status
				_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
					OrderID:   order.ID,
					EventType: "order_reconciled",
					OldStatus: &oldStatus,
					NewStatus: entity.OrderStatusFailed,
					CreatedAt: now,
				})
			}
		}
	}

	return firstErr
}

// RunExpireAwaitingBatch fails orders that sat awaiting payment past the
// configured window, so abandoned checkouts do not linger forever.
func (s *OrderService) RunExpireAwaitingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.ordersCfg.PendingTimeout)
	items, err := s.orderRepo.ListExpiredAwaiting(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, order := range items {
		if order == nil {
			continue
		}

		won, err := s.orderRepo.MarkFailed(ctx, order.ID, "payment window expired", now)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !won {
			continue
		}

		metrics.OrdersExpired.Inc()
		oldStatus := order.Status
		_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
			OrderID:   order.ID,
			EventType: "order_expired",
			OldStatus: &oldStatus,
			NewStatus: entity.OrderStatusFailed,
			CreatedAt: now,
		})
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
