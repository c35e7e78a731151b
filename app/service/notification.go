package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
	"github.com/amtech-gn/ms-go-orangemoney/app/gateway"
	"github.com/amtech-gn/ms-go-orangemoney/app/metrics"
)

// HandleIPN processes one instant payment notification. The HTTP boundary
// always acknowledges with 200 whatever happens here; the returned error is
// for logging and the notification audit trail only. Malformed or unknown
// notifications never mutate an order, and notifications against settled
// orders are ignored so replays stay idempotent.
func (s *OrderService) HandleIPN(ctx context.Context, token string, payload []byte, signature string) error {
	metrics.IPNReceived.Inc()

	gw, err := s.gatewayReg.Get(gateway.GatewayOrangeMoney)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	signature = strings.TrimSpace(signature)

	parsed, err := gw.VerifyAndParseNotification(ctx, payload, signature)
	if err != nil {
		metrics.IPNRejected.Inc()
		s.persistNotification(ctx, nil, token, signature, payload, entity.NotificationRejected, err.Error())
		return fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}

	order, err := s.orderRepo.FindByIPNToken(ctx, token)
	if err != nil {
		return err
	}
	if order == nil {
		metrics.IPNUnknownOrder.Inc()
		s.persistNotification(ctx, nil, token, signature, payload, entity.NotificationRejected, "no order for ipn token")
		return ErrUnknownOrderNotification
	}
	if parsed.OrderID != order.ID {
		metrics.IPNRejected.Inc()
		s.persistNotification(ctx, &order.ID, token, signature, payload, entity.NotificationRejected, "order_id does not match ipn token")
		return fmt.Errorf("%w: order_id does not match ipn token", ErrMalformedNotification)
	}

	if entity.TerminalStatus(order.Status) {
		metrics.IPNIgnored.Inc()
		s.persistNotification(ctx, &order.ID, token, signature, payload, entity.NotificationIgnored, "order already settled")
		return nil
	}

	now := time.Now().UTC()

	if parsed.Approved {
		won, err := s.orderRepo.MarkPaid(ctx, order.ID, nil, now)
		if err != nil {
			return err
		}
		if won {
			metrics.IPNProcessed.Inc()
			oldStatus := order.Status
			_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
				OrderID:   order.ID,
				EventType: "ipn_payment_completed",
				OldStatus: &oldStatus,
				NewStatus: entity.OrderStatusPaid,
				CreatedAt: now,
			})
			s.applyPaidSideEffects(ctx, order, now)
		} else {
			metrics.IPNIgnored.Inc()
		}
		s.persistNotification(ctx, &order.ID, token, signature, payload, entity.NotificationProcessed, "")
		return nil
	}

	reason := strings.TrimSpace(parsed.Message)
	if reason == "" {
		reason = "orange money payment failed"
	}

	won, err := s.orderRepo.MarkFailed(ctx, order.ID, reason, now)
	if err != nil {
		return err
	}
	if won {
		metrics.IPNProcessed.Inc()
		oldStatus := order.Status
		_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
			OrderID:   order.ID,
			EventType: "ipn_payment_failed",
			OldStatus: &oldStatus,
			NewStatus: entity.OrderStatusFailed,
			CreatedAt: now,
		})
	} else {
		metrics.IPNIgnored.Inc()
	}
	s.persistNotification(ctx, &order.ID, token, signature, payload, entity.NotificationProcessed, "")
	return nil
}

func (s *OrderService) persistNotification(
	ctx context.Context,
	orderID *uint64,
	token string,
	signature string,
	payload []byte,
	status int32,
	reason string,
) {
	now := time.Now().UTC()
	var errPtr *string
	if reason = strings.TrimSpace(reason); reason != "" {
		trimmed := truncate(reason, 1024)
		errPtr = &trimmed
	}
	_ = s.notificationRepo.Create(ctx, &entity.Notification{
		OrderID:     orderID,
		Gateway:     "orange_money",
		IPNToken:    token,
		Signature:   signature,
		PayloadJSON: string(payload),
		Status:      status,
		Error:       errPtr,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

// IsAbsorbedIPNError reports whether a HandleIPN failure is one the boundary
// deliberately swallows: the provider still gets an acknowledgement so it
// does not retry malformed or unroutable notifications forever.
func IsAbsorbedIPNError(err error) bool {
	return errors.Is(err, ErrMalformedNotification) || errors.Is(err, ErrUnknownOrderNotification)
}
