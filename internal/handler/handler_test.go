package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"

	sitestripe "github.com/languaro/site/internal/stripe"
	"github.com/languaro/site/internal/supabase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storeCall records one request the fake data store received.
type storeCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// newStore runs an httptest server standing in for the data store and
// returns a client pointed at it plus the recorded calls.
func newStore(t *testing.T, status int, respBody string) (*supabase.Client, *[]storeCall) {
	t.Helper()
	calls := &[]storeCall{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		*calls = append(*calls, storeCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(server.Close)

	return supabase.New(server.URL, "test-key"), calls
}

// unconfiguredStore is a client that reports itself unconfigured.
func unconfiguredStore() *supabase.Client {
	return supabase.New("", "")
}

type fakeProvider struct {
	created    []sitestripe.CheckoutParams
	session    *stripe.CheckoutSession
	sessionErr error
	sub        *stripe.Subscription
	subErr     error
	emails     map[string]string
	verifyErr  error
}

func (f *fakeProvider) CreateCheckoutSession(p sitestripe.CheckoutParams) (*stripe.CheckoutSession, error) {
	f.created = append(f.created, p)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeProvider) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeProvider) GetSubscription(id string) (*stripe.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.sub, nil
}

func (f *fakeProvider) CustomerEmail(id string) (string, error) {
	return f.emails[id], nil
}

func (f *fakeProvider) VerifyWebhook(payload []byte, sigHeader string) error {
	return f.verifyErr
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
