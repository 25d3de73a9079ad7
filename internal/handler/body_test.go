package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadBodyLenient(t *testing.T) {
	var req subscribeRequest

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co"}`))
	readBody(r, &req)
	if req.Email != "a@b.co" {
		t.Errorf("Email = %q", req.Email)
	}

	// Unparsable and empty bodies leave the struct at its zero value.
	req = subscribeRequest{}
	r = httptest.NewRequest("POST", "/", strings.NewReader(`not json at all`))
	readBody(r, &req)
	if req.Email != "" {
		t.Errorf("Email = %q after garbage body", req.Email)
	}

	req = subscribeRequest{}
	r = httptest.NewRequest("POST", "/", strings.NewReader(""))
	readBody(r, &req)
	if req.Email != "" {
		t.Errorf("Email = %q after empty body", req.Email)
	}
}

func TestFlexInt(t *testing.T) {
	var payload struct {
		Price flexInt `json:"price"`
	}

	for raw, want := range map[string]flexInt{
		`{"price": 4900}`:   4900,
		`{"price": "4900"}`: 4900,
		`{"price": "oops"}`: 0,
		`{}`:                0,
	} {
		payload.Price = 0
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if payload.Price != want {
			t.Errorf("%s: price = %d, want %d", raw, payload.Price, want)
		}
	}
}
