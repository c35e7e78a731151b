//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/amtech-gn/ms-go-orangemoney/app/types"
)

const defaultOrdersHTTPBase = "http://localhost:48080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func callerAPIKey() string {
	return os.Getenv("APP_API_KEY")
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	return c.doJSONWithAPIKey(t, method, path, body, callerAPIKey())
}

func (c *httpClient) doJSONWithAPIKey(t *testing.T, method, path string, body any, apiKey string) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func TestOrdersE2E(t *testing.T) {
	httpBase := os.Getenv("ORDERS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultOrdersHTTPBase
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(httpBase)

	t.Run("HTTPUnauthorizedMissingAPIKey", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/orders/1", nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for missing x-api-key, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPValidationCreate", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/orders", map[string]any{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid create request, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPCreateAndGetOrder", func(t *testing.T) {
		number := fmt.Sprintf("E2E-%d", time.Now().UnixNano())
		resp, body := client.doJSON(t, http.MethodPost, "/orders", map[string]any{
			"number":         number,
			"caller_service": "e2e-suite",
			"amount_cents":   50000,
			"currency":       "GNF",
			"return_url":     "https://shop.example/thanks",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", resp.StatusCode, string(body))
		}

		var envelope types.OrderEnvelopeResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			t.Fatalf("unmarshal create response failed: %v body=%s", err, string(body))
		}
		if envelope.Order == nil || envelope.Order.Id == 0 {
			t.Fatalf("expected created order, got %s", string(body))
		}
		if envelope.Order.Status != "awaiting_payment" {
			t.Fatalf("expected awaiting_payment, got %s", envelope.Order.Status)
		}

		resp, body = client.doJSON(t, http.MethodGet, fmt.Sprintf("/orders/%d", envelope.Order.Id), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPCreateIsIdempotent", func(t *testing.T) {
		number := fmt.Sprintf("E2E-IDEM-%d", time.Now().UnixNano())
		payload := map[string]any{
			"number":         number,
			"caller_service": "e2e-suite",
			"amount_cents":   25000,
			"currency":       "GNF",
			"return_url":     "https://shop.example/thanks",
		}

		_, first := client.doJSON(t, http.MethodPost, "/orders", payload)
		_, second := client.doJSON(t, http.MethodPost, "/orders", payload)

		var firstEnvelope, secondEnvelope types.OrderEnvelopeResponse
		if err := json.Unmarshal(first, &firstEnvelope); err != nil {
			t.Fatalf("unmarshal first create failed: %v", err)
		}
		if err := json.Unmarshal(second, &secondEnvelope); err != nil {
			t.Fatalf("unmarshal second create failed: %v", err)
		}
		if firstEnvelope.Order == nil || secondEnvelope.Order == nil {
			t.Fatal("expected orders in both responses")
		}
		if firstEnvelope.Order.Id != secondEnvelope.Order.Id {
			t.Fatalf("expected same order id, got %d and %d", firstEnvelope.Order.Id, secondEnvelope.Order.Id)
		}
	})

	t.Run("HTTPCancelNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/orders/999999999/cancel", map[string]any{"reason": "e2e"})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPGetNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/orders/999999999", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPIPNAlwaysAcknowledges", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, httpBase+"/ipn/orange-money/no-such-token", bytes.NewReader([]byte(`{"order_id":1,"status":"success"}`)))
		if err != nil {
			t.Fatalf("new request failed: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-OM-Signature", "bogus")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("ipn request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("ipn must always acknowledge, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		var ack types.AckResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			t.Fatalf("unmarshal ack failed: %v body=%s", err, string(body))
		}
		if ack.Status != "ok" {
			t.Fatalf("unexpected ack status: %s", ack.Status)
		}
	})

	t.Run("HTTPMetricsExposed", func(t *testing.T) {
		resp, err := http.Get(httpBase + "/metrics")
		if err != nil {
			t.Fatalf("metrics request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 from /metrics, got %d", resp.StatusCode)
		}
	})
}
