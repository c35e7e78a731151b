package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
)

type OrangeMoneyConfig struct {
	Enabled     bool
	Title       string
	Description string

	APIKey    string
	APISecret string
	Sandbox   bool

	LiveEndpoint    string
	SandboxEndpoint string

	HTTPTimeout         time.Duration
	BreakerMaxFailures  int
	BreakerOpenInterval time.Duration
}

type OrangeMoneyGateway struct {
	cfg     OrangeMoneyConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewOrangeMoneyGateway(cfg OrangeMoneyConfig) *OrangeMoneyGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	openInterval := cfg.BreakerOpenInterval
	if openInterval <= 0 {
		openInterval = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "orange-money",
		Timeout: openInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
	})

	return &OrangeMoneyGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

func (g *OrangeMoneyGateway) Code() int32 {
	return GatewayOrangeMoney
}

func (g *OrangeMoneyGateway) GatewaySettings() Settings {
	return Settings{
		Enabled:     g.cfg.Enabled,
		Title:       g.cfg.Title,
		Description: g.cfg.Description,
		APIKey:      g.cfg.APIKey,
		APISecret:   g.cfg.APISecret,
		Sandbox:     g.cfg.Sandbox,
	}
}

func (g *OrangeMoneyGateway) Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" || strings.TrimSpace(g.cfg.APISecret) == "" {
		return nil, errors.New("orange money api credentials are not configured")
	}

	body, err := g.postJSON(ctx, g.endpoint(), map[string]any{
		"api_key":      g.cfg.APIKey,
		"api_secret":   g.cfg.APISecret,
		"amount":       input.AmountCents,
		"currency":     input.Currency,
		"order_id":     input.OrderID,
		"callback_url": input.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status    string `json:"status"`
		Message   string `json:"message"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &TransportError{Cause: "unparseable provider response: " + err.Error()}
	}

	result := &InitiateOutput{
		Approved: strings.EqualFold(strings.TrimSpace(payload.Status), "success"),
		Message:  strings.TrimSpace(payload.Message),
	}
	if ref := strings.TrimSpace(payload.Reference); ref != "" {
		result.GatewayRef = &ref
	}

	return result, nil
}

func (g *OrangeMoneyGateway) VerifyAndParseNotification(_ context.Context, payload []byte, signature string) (*Notification, error) {
	if strings.TrimSpace(g.cfg.APISecret) == "" {
		return nil, errors.New("orange money api secret is not configured")
	}
	if !verifySignature(payload, signature, g.cfg.APISecret) {
		return nil, errors.New("invalid notification signature")
	}

	var body struct {
		OrderID any    `json:"order_id"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}

	orderID, ok := parseOrderID(body.OrderID)
	if !ok {
		return nil, errors.New("notification order_id is missing or malformed")
	}
	status := strings.TrimSpace(body.Status)
	if status == "" {
		return nil, errors.New("notification status is missing")
	}

	return &Notification{
		OrderID:  orderID,
		Approved: strings.EqualFold(status, "success"),
		Message:  strings.TrimSpace(body.Message),
	}, nil
}

func (g *OrangeMoneyGateway) GetPaymentStatus(ctx context.Context, orderNumber string) (int32, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return 0, nil
	}

	body, err := g.postJSON(ctx, g.endpoint()+"/status", map[string]any{
		"api_key":    g.cfg.APIKey,
		"api_secret": g.cfg.APISecret,
		"order_id":   orderNumber,
	})
	if err != nil {
		return 0, err
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, &TransportError{Cause: "unparseable provider response: " + err.Error()}
	}

	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "success", "paid":
		return entity.OrderStatusPaid, nil
	case "failure", "failed":
		return entity.OrderStatusFailed, nil
	default:
		return 0, nil
	}
}

func (g *OrangeMoneyGateway) endpoint() string {
	if g.cfg.Sandbox {
		return strings.TrimRight(g.cfg.SandboxEndpoint, "/")
	}
	return strings.TrimRight(g.cfg.LiveEndpoint, "/")
}

func (g *OrangeMoneyGateway) postJSON(ctx context.Context, url string, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("provider returned status=%d body=%s", resp.StatusCode, truncateBody(body))
		}
		return body, nil
	})
	if err != nil {
		return nil, &TransportError{Cause: err.Error()}
	}

	return result.([]byte), nil
}

// Sign computes the hex HMAC-SHA256 of payload keyed by secret. Notifications
// must carry this value in the X-OM-Signature header to be trusted.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(payload []byte, signature string, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	candidate, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(candidate, mac.Sum(nil))
}

func parseOrderID(v any) (uint64, bool) {
	switch t := v.(type) {
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return id, true
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return 0, false
		}
		return uint64(t), true
	default:
		return 0, false
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max])
}
