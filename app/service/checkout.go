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

type CheckoutResult struct {
	RedirectURL string
}

// InitiateCheckout drives the synchronous payment path for one order: it
// sends the payment request to Orange Money and, on an approved response,
// applies the paid transition with its side effects (stock reduction, cart
// clearing). A declined or unreachable provider leaves the order untouched
// so the buyer stays on the checkout page.
func (s *OrderService) InitiateCheckout(ctx context.Context, orderID uint64, sessionID string) (*CheckoutResult, error) {
	gw, err := s.gatewayReg.Get(gateway.GatewayOrangeMoney)
	if err != nil {
		if errors.Is(err, gateway.ErrGatewayNotSupported) {
			return nil, ErrGatewayUnsupported
		}
		return nil, err
	}
	if !gw.GatewaySettings().Enabled {
		return nil, ErrGatewayDisabled
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if entity.TerminalStatus(order.Status) {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderClosed, entity.OrderStatusLabel(order.Status))
	}

	metrics.CheckoutInitiated.Inc()

	output, err := gw.Initiate(ctx, &gateway.InitiateInput{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		AmountCents: order.AmountCents,
		Currency:    order.Currency,
		CallbackURL: s.ipnURL(order.IPNToken),
	})
	if err != nil {
		var transportErr *gateway.TransportError
		if errors.As(err, &transportErr) {
			metrics.CheckoutErrors.Inc()
			return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, transportErr.Cause)
		}
		return nil, err
	}

	now := time.Now().UTC()

	if !output.Approved {
		metrics.CheckoutDeclined.Inc()
		_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
			OrderID:   order.ID,
			EventType: "payment_declined",
			NewStatus: order.Status,
			CreatedAt: now,
		})
		message := output.Message
		if message == "" {
			message = "payment was not approved"
		}
		return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, message)
	}

	won, err := s.orderRepo.MarkPaid(ctx, order.ID, output.GatewayRef, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent notification settled the order first. Terminal
		// status wins: confirm to the buyer only if it settled as paid.
		settled, err := s.orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if settled == nil || settled.Status != entity.OrderStatusPaid {
			return nil, fmt.Errorf("%w: order is %s", ErrOrderClosed, entity.OrderStatusLabel(settledStatus(settled)))
		}
		return &CheckoutResult{RedirectURL: appendQuery(order.ReturnURL, "payment", "success")}, nil
	}

	metrics.CheckoutApproved.Inc()
	oldStatus := order.Status
	_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
		OrderID:    order.ID,
		EventType:  "payment_completed",
		OldStatus:  &oldStatus,
		NewStatus:  entity.OrderStatusPaid,
		GatewayRef: output.GatewayRef,
		CreatedAt:  now,
	})
	s.applyPaidSideEffects(ctx, order, now)

	if err := s.cartStore.Clear(ctx, derefString(order.SessionID, sessionID)); err != nil {
		_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
			OrderID:   order.ID,
			EventType: "cart_clear_failed",
			NewStatus: entity.OrderStatusPaid,
			CreatedAt: now,
		})
	}

	return &CheckoutResult{RedirectURL: appendQuery(order.ReturnURL, "payment", "success")}, nil
}

func settledStatus(order *entity.Order) int32 {
	if order == nil {
		return 0
	}
	return order.Status
}

// applyPaidSideEffects runs the at-most-once stock reduction attached to the
// paid transition. The repository flag guards replays across both paths.
func (s *OrderService) applyPaidSideEffects(ctx context.Context, order *entity.Order, now time.Time) {
	reduced, err := s.orderRepo.ReduceStock(ctx, order.ID, now)
	if err != nil || !reduced {
		return
	}
	_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
		OrderID:   order.ID,
		EventType: "stock_reduced",
		NewStatus: entity.OrderStatusPaid,
		CreatedAt: now,
	})
}

func (s *OrderService) ipnURL(token string) string {
	if s.ipnBaseURL == "" || strings.TrimSpace(token) == "" {
		return ""
	}
	return s.ipnBaseURL + "/ipn/orange-money/" + strings.TrimSpace(token)
}

func appendQuery(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return rawURL + separator + key + "=" + value
}

func derefString(v *string, fallback string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return *v
	}
	return fallback
}
