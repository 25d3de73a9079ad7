package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookCheckoutCompleted(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[{"email":"alice@example.com"}]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_123",
			"amount_total": 4900,
			"customer_details": {"email": "Alice@Example.com"}
		}}
	}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(*calls) != 1 {
		t.Fatalf("store calls = %d, want 1", len(*calls))
	}

	body := (*calls)[0].Body
	if body["email"] != "alice@example.com" {
		t.Errorf("email = %v, want normalized", body["email"])
	}
	if body["is_pro"] != true {
		t.Error("is_pro not set")
	}
	if body["plan"] != "lifetime" {
		t.Errorf("plan = %v, want lifetime for 4900 one-off", body["plan"])
	}

	expiresStr, _ := body["subscription_expires_at"].(string)
	expires, err := time.Parse(time.RFC3339, expiresStr)
	if err != nil {
		t.Fatalf("parse subscription_expires_at %q: %v", expiresStr, err)
	}
	want := time.Now().UTC().Add(30 * 24 * time.Hour)
	if diff := expires.Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("subscription_expires_at off by %v", diff)
	}

	pd, _ := body["purchase_data"].(map[string]any)
	if pd["source"] != "stripe" || pd["session_id"] != "cs_123" {
		t.Errorf("purchase_data = %v", pd)
	}

	resp := decodeResponse[webhookResponse](t, rec)
	if !resp.OK || resp.Message != "Subscription activated" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebhookMonthlyRecurrence(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	// Recurrence arrives either as an object or a bare string.
	for _, recurring := range []string{`{"interval":"month"}`, `"month"`} {
		payload := `{
			"type": "checkout.session.completed",
			"data": {"object": {
				"id": "cs_m",
				"amount_total": 990,
				"customer_email": "bob@example.com",
				"recurring": ` + recurring + `
			}}
		}`
		req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	for i, call := range *calls {
		if call.Body["plan"] != "monthly" {
			t.Errorf("call %d: plan = %v, want monthly", i, call.Body["plan"])
		}
	}
}

func TestWebhookUnhandledEventAcknowledged(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	payload := `{"type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for unhandled event", rec.Code)
	}
	if len(*calls) != 0 {
		t.Errorf("store calls = %d, want 0", len(*calls))
	}
	resp := decodeResponse[webhookResponse](t, rec)
	if resp.Message != "Event received" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestWebhookInformationalEvents(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	for _, typ := range []string{"payment_intent.succeeded", "invoice.payment_failed"} {
		payload := `{"type": "` + typ + `", "data": {"object": {"id": "x"}}}`
		req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", typ, rec.Code)
		}
	}
	if len(*calls) != 0 {
		t.Errorf("store calls = %d, want 0 for informational events", len(*calls))
	}
}

func TestWebhookInvalidEmailNoWrite(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_x", "customer_email": "not-an-email"}}
	}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(*calls) != 0 {
		t.Errorf("store calls = %d, want 0", len(*calls))
	}
}

func TestWebhookInvoicePaidLooksUpCustomer(t *testing.T) {
	store, calls := newStore(t, http.StatusOK, `[]`)
	provider := &fakeProvider{emails: map[string]string{"cus_42": "carol@example.com"}}
	h := NewWebhookHandler(provider, store, "users", testLogger())

	payload := `{
		"type": "invoice.payment_succeeded",
		"data": {"object": {"customer": "cus_42"}}
	}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if len(*calls) != 1 {
		t.Fatalf("store calls = %d", len(*calls))
	}
	body := (*calls)[0].Body
	if body["email"] != "carol@example.com" || body["is_pro"] != true {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["plan"]; ok {
		t.Error("extension should not touch plan")
	}
	if _, ok := body["activated_at"]; ok {
		t.Error("extension should not touch activated_at")
	}
}

func TestWebhookSubscriptionDeletedRevokes(t *testing.T) {
	store, calls := newStore(t, http.StatusOK, `[]`)
	provider := &fakeProvider{emails: map[string]string{"cus_7": "dave@example.com"}}
	h := NewWebhookHandler(provider, store, "users", testLogger())

	payload := `{
		"type": "customer.subscription.deleted",
		"data": {"object": {"customer": "cus_7"}}
	}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := (*calls)[0].Body
	if body["email"] != "dave@example.com" {
		t.Errorf("email = %v", body["email"])
	}
	if body["is_pro"] != false {
		t.Errorf("is_pro = %v, want false", body["is_pro"])
	}
	if _, ok := body["subscription_expires_at"]; ok {
		t.Error("revocation should not send subscription_expires_at")
	}
}

func TestWebhookSignatureRejected(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	provider := &fakeProvider{verifyErr: errors.New("bad signature")}
	h := NewWebhookHandler(provider, store, "users", testLogger())

	payload := `{"type": "checkout.session.completed", "data": {"object": {"id": "cs_1", "customer_email": "a@b.co"}}}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(*calls) != 0 {
		t.Errorf("store calls = %d, want 0", len(*calls))
	}
}

func TestWebhookLegacyPayload(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	payload := `{
		"purchaser": {"email": "Eve@Example.com"},
		"sale_id": "sale_9",
		"product_name": "Languaro Lifetime",
		"price": "2900"
	}`
	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := (*calls)[0].Body
	if body["email"] != "eve@example.com" || body["plan"] != "lifetime" {
		t.Errorf("body = %v", body)
	}
	pd, _ := body["purchase_data"].(map[string]any)
	if pd["source"] != "gumroad" || pd["sale_id"] != "sale_9" {
		t.Errorf("purchase_data = %v", pd)
	}

	resp := decodeResponse[webhookResponse](t, rec)
	if resp.Email != "eve@example.com" || resp.Plan != "lifetime" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebhookLegacyNoEmail(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(`{"sale_id": "s1"}`))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(*calls) != 0 {
		t.Errorf("store calls = %d", len(*calls))
	}
}

func TestWebhookUnparsableBody(t *testing.T) {
	store, calls := newStore(t, http.StatusCreated, `[]`)
	h := NewWebhookHandler(&fakeProvider{}, store, "users", testLogger())

	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader("{{{"))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	// Garbage degrades to an empty payload, which fails the legacy
	// missing-email check.
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(*calls) != 0 {
		t.Errorf("store calls = %d", len(*calls))
	}
}

func TestWebhookStoreNotConfigured(t *testing.T) {
	h := NewWebhookHandler(&fakeProvider{}, unconfiguredStore(), "users", testLogger())

	req := httptest.NewRequest("POST", "/api/purchase-webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
