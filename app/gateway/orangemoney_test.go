package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
)

func newTestGateway(endpoint string) *OrangeMoneyGateway {
	return NewOrangeMoneyGateway(OrangeMoneyConfig{
		Enabled:         true,
		Title:           "Orange Money",
		APIKey:          "om_key",
		APISecret:       "om_secret",
		Sandbox:         true,
		SandboxEndpoint: endpoint,
		LiveEndpoint:    "https://api.orange-money.example/payment",
		HTTPTimeout:     2 * time.Second,
	})
}

func TestInitiateApproved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","reference":"om-ref-1"}`))
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	out, err := gw.Initiate(context.Background(), &InitiateInput{
		OrderID:     42,
		OrderNumber: "ORD-42",
		AmountCents: 50000,
		Currency:    "GNF",
		CallbackURL: "https://shop.example/ipn/orange-money/token",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if !out.Approved {
		t.Fatal("expected approved result")
	}
	if out.GatewayRef == nil || *out.GatewayRef != "om-ref-1" {
		t.Fatalf("unexpected gateway ref: %v", out.GatewayRef)
	}
}

func TestInitiateDeclinedCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failure","message":"insufficient funds"}`))
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	out, err := gw.Initiate(context.Background(), &InitiateInput{OrderID: 42, AmountCents: 1000, Currency: "GNF"})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if out.Approved {
		t.Fatal("expected declined result")
	}
	if out.Message != "insufficient funds" {
		t.Fatalf("unexpected message: %q", out.Message)
	}
}

func TestInitiateServerErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	_, err := gw.Initiate(context.Background(), &InitiateInput{OrderID: 42, AmountCents: 1000, Currency: "GNF"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestInitiateUnparseableBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	_, err := gw.Initiate(context.Background(), &InitiateInput{OrderID: 42, AmountCents: 1000, Currency: "GNF"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestVerifyAndParseNotification(t *testing.T) {
	gw := newTestGateway("https://sandbox.orange-money.example/payment")
	payload := []byte(`{"order_id":42,"status":"success"}`)

	note, err := gw.VerifyAndParseNotification(context.Background(), payload, Sign(payload, "om_secret"))
	if err != nil {
		t.Fatalf("parse notification failed: %v", err)
	}
	if note.OrderID != 42 || !note.Approved {
		t.Fatalf("unexpected notification: %+v", note)
	}

	if _, err := gw.VerifyAndParseNotification(context.Background(), payload, Sign(payload, "wrong")); err == nil {
		t.Fatal("expected invalid signature to fail")
	}
	if _, err := gw.VerifyAndParseNotification(context.Background(), payload, ""); err == nil {
		t.Fatal("expected missing signature to fail")
	}
}

func TestVerifyAndParseNotificationMalformed(t *testing.T) {
	gw := newTestGateway("https://sandbox.orange-money.example/payment")

	cases := map[string]string{
		"missing order_id": `{"status":"success"}`,
		"missing status":   `{"order_id":42}`,
		"bad order_id":     `{"order_id":"abc","status":"success"}`,
		"not json":         `status=success`,
	}
	for name, raw := range cases {
		payload := []byte(raw)
		if _, err := gw.VerifyAndParseNotification(context.Background(), payload, Sign(payload, "om_secret")); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestGetPaymentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	status, err := gw.GetPaymentStatus(context.Background(), "42")
	if err != nil {
		t.Fatalf("get payment status failed: %v", err)
	}
	if status != entity.OrderStatusPaid {
		t.Fatalf("unexpected status: %d", status)
	}

	status, err = gw.GetPaymentStatus(context.Background(), "")
	if err != nil || status != 0 {
		t.Fatalf("expected zero status for empty order number, got %d err=%v", status, err)
	}
}

func TestSandboxModeSelectsEndpoint(t *testing.T) {
	gw := newTestGateway("https://sandbox.orange-money.example/payment/")
	if gw.endpoint() != "https://sandbox.orange-money.example/payment" {
		t.Fatalf("unexpected sandbox endpoint: %s", gw.endpoint())
	}

	gw.cfg.Sandbox = false
	if gw.endpoint() != "https://api.orange-money.example/payment" {
		t.Fatalf("unexpected live endpoint: %s", gw.endpoint())
	}
}
