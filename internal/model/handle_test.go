package model

import (
	"encoding/json"
	"testing"
)

func TestHandleStableRegardlessOfFieldOrder(t *testing.T) {
	a := SearchRequest{Pattern: "err", Filter: Filter{Service: "api", Limit: 10}}
	b := SearchRequest{Filter: Filter{Limit: 10, Service: "api"}, Pattern: "err"}

	ha, err := Handle(a)
	if err != nil {
		t.Fatalf("Handle(a): %v", err)
	}
	hb, err := Handle(b)
	if err != nil {
		t.Fatalf("Handle(b): %v", err)
	}
	if ha != hb {
		t.Errorf("Handle differs across equivalent field order: %q vs %q", ha, hb)
	}
}

func TestHandleDiffersOnDifferentContent(t *testing.T) {
	a := SearchRequest{Pattern: "err"}
	b := SearchRequest{Pattern: "warn"}

	ha, _ := Handle(a)
	hb, _ := Handle(b)
	if ha == hb {
		t.Errorf("Handle collided for different requests: %q", ha)
	}
}

func TestResolveHandleRoundTrip(t *testing.T) {
	req := SearchRequest{Pattern: "boot", Filter: Filter{Service: "api"}}
	h, err := Handle(req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	raw, err := ResolveHandle(h)
	if err != nil {
		t.Fatalf("ResolveHandle: %v", err)
	}

	var got SearchRequest
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal resolved handle: %v", err)
	}
	if got.Pattern != req.Pattern || got.Service != req.Service {
		t.Errorf("round-tripped request = %+v, want %+v", got, req)
	}
}
