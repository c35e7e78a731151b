package service

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
	ErrOrderClosed        = errors.New("order payment is already settled")
	ErrGatewayDisabled    = errors.New("orange money payments are disabled")
	ErrGatewayUnsupported = errors.New("gateway is not supported")
	ErrGatewayUnavailable = errors.New("payment provider unavailable")
	ErrPaymentDeclined    = errors.New("payment declined")

	ErrMalformedNotification    = errors.New("malformed payment notification")
	ErrUnknownOrderNotification = errors.New("notification references unknown order")
)
