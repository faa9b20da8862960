package utils

import (
	"testing"
	"time"
)

func TestDateOnly(t *testing.T) {
	in := time.Date(2026, 8, 31, 14, 23, 45, 123, time.UTC)
	got := DateOnly(in)
	want := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly(%v) = %v, want %v", in, got, want)
	}
}

func TestCombineDateAndTime(t *testing.T) {
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	got, err := CombineDateAndTime(date, "09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("CombineDateAndTime = %v, want %v", got, want)
	}

	if _, err := CombineDateAndTime(date, "25:00"); err == nil {
		t.Error("expected error for invalid wall-clock value")
	}
	if _, err := CombineDateAndTime(date, "930"); err == nil {
		t.Error("expected error for malformed value")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword("secret123", hash); err != nil {
		t.Errorf("CheckPassword rejected correct password: %v", err)
	}
	if err := CheckPassword("wrong", hash); err == nil {
		t.Error("CheckPassword accepted wrong password")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{"student", "professor", "admin"} {
		if !IsValidRole(role) {
			t.Errorf("IsValidRole(%q) = false, want true", role)
		}
	}
	if IsValidRole("owner") {
		t.Error("IsValidRole(\"owner\") = true, want false")
	}
}
