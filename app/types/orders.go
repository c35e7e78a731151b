package types

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type AckResponse struct {
	Status string `json:"status"`
}

type Order struct {
	Id            uint64 `json:"id"`
	Number        string `json:"number"`
	CallerService string `json:"caller_service"`
	CustomerRef   string `json:"customer_ref,omitempty"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	GatewayRef    string `json:"gateway_ref,omitempty"`
	ReturnUrl     string `json:"return_url"`
	StockReduced  bool   `json:"stock_reduced"`
	PaidAt        string `json:"paid_at,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type OrderEnvelopeResponse struct {
	Order *Order `json:"order"`
}

type CheckoutResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect"`
}

type CreateOrderRequest struct {
	Number        string `json:"number"`
	CallerService string `json:"caller_service"`
	CustomerRef   string `json:"customer_ref"`
	SessionID     string `json:"session_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	ReturnURL     string `json:"return_url"`
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Number = strings.TrimSpace(body.Number)
	body.CallerService = strings.TrimSpace(body.CallerService)
	body.CustomerRef = strings.TrimSpace(body.CustomerRef)
	body.SessionID = strings.TrimSpace(body.SessionID)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.ReturnURL = strings.TrimSpace(body.ReturnURL)

	return &body, nil
}

func (r *CreateOrderRequest) Validate() error {
	if r.Number == "" {
		return errors.New("number is required")
	}
	if r.CallerService == "" {
		return errors.New("caller_service is required")
	}
	if r.AmountCents < 0 {
		return errors.New("amount_cents must be >= 0")
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.ReturnURL == "" {
		return errors.New("return_url is required")
	}
	return nil
}

type GetOrderRequest struct {
	Id uint64
}

func NewGetOrderRequestFromContext(ctx echo.Context) (*GetOrderRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetOrderRequest{Id: id}, nil
}

func (r *GetOrderRequest) Validate() error {
	if r.Id == 0 {
		return errors.New("invalid order id")
	}
	return nil
}

type InitiateCheckoutRequest struct {
	OrderId   uint64
	SessionID string `json:"session_id"`
}

func NewInitiateCheckoutRequestFromContext(ctx echo.Context) (*InitiateCheckoutRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body InitiateCheckoutRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.OrderId = id
	body.SessionID = strings.TrimSpace(body.SessionID)
	if body.SessionID == "" {
		body.SessionID = strings.TrimSpace(ctx.Request().Header.Get("X-Session-ID"))
	}

	return &body, nil
}

func (r *InitiateCheckoutRequest) Validate() error {
	if r.OrderId == 0 {
		return errors.New("invalid order id")
	}
	return nil
}

type CancelOrderRequest struct {
	OrderId uint64
	Reason  string `json:"reason"`
}

func NewCancelOrderRequestFromContext(ctx echo.Context) (*CancelOrderRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body CancelOrderRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.OrderId = id
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *CancelOrderRequest) Validate() error {
	if r.OrderId == 0 {
		return errors.New("invalid order id")
	}
	return nil
}

type IPNRequest struct {
	Token     string
	Signature string
	Payload   []byte
}

func NewIPNRequestFromContext(ctx echo.Context) (*IPNRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &IPNRequest{
		Token:     strings.TrimSpace(ctx.Param("token")),
		Signature: strings.TrimSpace(ctx.Request().Header.Get("X-OM-Signature")),
		Payload:   rawBody,
	}, nil
}

func (r *IPNRequest) Validate() error {
	if r.Token == "" {
		return errors.New("ipn token is required")
	}
	return nil
}
