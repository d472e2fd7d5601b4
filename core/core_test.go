package core

import (
	"errors"
	"testing"
	"time"
)

func TestEvent_Valid(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"complete", Event{UserID: "u1", ItemID: "i1", Type: EventView}, true},
		{"missing user", Event{ItemID: "i1", Type: EventView}, false},
		{"missing item", Event{UserID: "u1", Type: EventView}, false},
		{"unknown type still valid", Event{UserID: "u1", ItemID: "i1", Type: "wishlist"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_HasTimestamp(t *testing.T) {
	ev := Event{UserID: "u1", ItemID: "i1"}
	if ev.HasTimestamp() {
		t.Error("zero timestamp should report false")
	}
	ev.Timestamp = time.Now()
	if !ev.HasTimestamp() {
		t.Error("set timestamp should report true")
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{-1, 0},
		{-2, 0},   // clamp below
		{0, 50},   // neutral
		{1, 100},
		{3, 100},  // clamp above
		{0.5, 75},
	}
	for _, tt := range tests {
		if got := NormalizeScore(tt.raw); got != tt.want {
			t.Errorf("NormalizeScore(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestFallbackMeta(t *testing.T) {
	m := FallbackMeta("i42")
	if m.Name != "Item i42" {
		t.Errorf("Name = %q, want \"Item i42\"", m.Name)
	}
	if m.Category != "unknown" {
		t.Errorf("Category = %q, want unknown", m.Category)
	}
}

func TestDomainError(t *testing.T) {
	err := NewDomainError(ModuleEngine, ErrorCodeStateInvalid, "boom")

	if !IsDomainError(err) {
		t.Error("IsDomainError should be true")
	}
	if !IsStateInvalid(err) {
		t.Error("IsStateInvalid should be true")
	}
	if IsNotFound(err) {
		t.Error("IsNotFound should be false for STATE_INVALID")
	}
	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want boom", err.Error())
	}

	plain := errors.New("plain")
	if IsDomainError(plain) || IsStateInvalid(plain) {
		t.Error("plain errors must not match domain checks")
	}
	if GetDomainError(plain) != nil {
		t.Error("GetDomainError(plain) should be nil")
	}
}

func TestStoreErrorHelpers(t *testing.T) {
	if !IsStoreNotFound(ErrStoreNotFound) {
		t.Error("IsStoreNotFound(ErrStoreNotFound) should be true")
	}
	if IsStoreNotFound(ErrStoreNotSupported) {
		t.Error("IsStoreNotFound(ErrStoreNotSupported) should be false")
	}
	if !IsStoreNotSupported(ErrStoreNotSupported) {
		t.Error("IsStoreNotSupported(ErrStoreNotSupported) should be true")
	}
}
