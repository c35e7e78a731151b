package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amtech-gn/ms-go-orangemoney/app/cart"
	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
	"github.com/amtech-gn/ms-go-orangemoney/app/gateway"
	"github.com/amtech-gn/ms-go-orangemoney/app/repository"
	"github.com/amtech-gn/ms-go-orangemoney/app/types"
	"github.com/amtech-gn/ms-go-orangemoney/config"
)

const defaultBatchSize = int32(100)

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id uint64) (*entity.Order, error)
	FindByCallerNumber(ctx context.Context, callerService, number string) (*entity.Order, error)
	FindByIPNToken(ctx context.Context, token string) (*entity.Order, error)
	MarkPaid(ctx context.Context, id uint64, gatewayRef *string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uint64, reason string, now time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uint64, reason string, now time.Time) (bool, error)
	ReduceStock(ctx context.Context, id uint64, now time.Time) (bool, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error)
	ListExpiredAwaiting(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error)
}

type orderEventRepository interface {
	Create(ctx context.Context, event *entity.OrderEvent) error
}

type notificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
}

type OrderService struct {
	orderRepo        orderRepository
	eventRepo        orderEventRepository
	notificationRepo notificationRepository
	gatewayReg       *gateway.Registry
	cartStore        cart.Store
	ordersCfg        config.OrdersConfig
	ipnBaseURL       string
}

func NewOrderService(
	orderRepo orderRepository,
	eventRepo orderEventRepository,
	notificationRepo notificationRepository,
	gatewayReg *gateway.Registry,
	cartStore cart.Store,
	ordersCfg config.OrdersConfig,
	ipnBaseURL string,
) *OrderService {
	return &OrderService{
		orderRepo:        orderRepo,
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		gatewayReg:       gatewayReg,
		cartStore:        cartStore,
		ordersCfg:        ordersCfg,
		ipnBaseURL:       strings.TrimRight(strings.TrimSpace(ipnBaseURL), "/"),
	}
}

// CreateOrder registers an order awaiting payment. Intake is idempotent on
// (caller_service, number): replays return the already-registered order.
func (s *OrderService) CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*entity.Order, error) {
	number := strings.TrimSpace(req.Number)
	callerService := strings.TrimSpace(req.CallerService)
	if number == "" || callerService == "" {
		return nil, ErrInvalidRequest
	}

	existing, err := s.orderRepo.FindByCallerNumber(ctx, callerService, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	order := &entity.Order{
		Number:        number,
		CallerService: callerService,
		CustomerRef:   normalizeOptionalString(req.CustomerRef),
		SessionID:     normalizeOptionalString(req.SessionID),
		AmountCents:   req.AmountCents,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:        entity.OrderStatusAwaitingPayment,
		Gateway:       gateway.GatewayOrangeMoney,
		IPNToken:      uuid.NewString(),
		ReturnURL:     strings.TrimSpace(req.ReturnURL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			return nil, ErrOrderAlreadyExists
		}
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
		OrderID:   order.ID,
		EventType: "order_received",
		NewStatus: order.Status,
		CreatedAt: now,
	})

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint64) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// CancelOrder closes an order that is still payable. Paid and failed orders
// cannot be cancelled; replays against an already-cancelled order return the
// settled row unchanged.
func (s *OrderService) CancelOrder(ctx context.Context, id uint64, reason string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == entity.OrderStatusCancelled {
		return order, nil
	}
	if entity.TerminalStatus(order.Status) {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderClosed, entity.OrderStatusLabel(order.Status))
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by caller"
	}

	now := time.Now().UTC()
	won, err := s.orderRepo.MarkCancelled(ctx, order.ID, reason, now)
	if err != nil {
		return nil, err
	}
	if !won {
		settled, err := s.orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if settled != nil && settled.Status == entity.OrderStatusCancelled {
			return settled, nil
		}
		return nil, fmt.Errorf("%w: order is %s", ErrOrderClosed, entity.OrderStatusLabel(settledStatus(settled)))
	}

	oldStatus := order.Status
	_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
		OrderID:   order.ID,
		EventType: "order_cancelled",
		OldStatus: &oldStatus,
		NewStatus: entity.OrderStatusCancelled,
		CreatedAt: now,
	})

	order.Status = entity.OrderStatusCancelled
	order.FailureReason = &reason
	order.UpdatedAt = now
	return order, nil
}

func (s *OrderService) batchSize() int32 {
	if s.ordersCfg.JobBatchSize > 0 {
		return s.ordersCfg.JobBatchSize
	}
	return defaultBatchSize
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
