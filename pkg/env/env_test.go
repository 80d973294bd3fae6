package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("MEALKIT_ENV_TEST_KEY", "set")
	if got := Get("MEALKIT_ENV_TEST_KEY", "fallback"); got != "set" {
		t.Fatalf("expected set value, got %q", got)
	}

	if got := Get("MEALKIT_ENV_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("MEALKIT_ENV_TEST_EMPTY", "")
	if got := Get("MEALKIT_ENV_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty variable, got %q", got)
	}
}
