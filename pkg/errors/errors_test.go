package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestWithDetailDoesNotMutateBase(t *testing.T) {
	base := NewUpstream("Gemini didn't return an image", nil)
	first := base.WithDetail("raw", "one")
	second := first.WithDetail("status", 502)

	if base.Details != nil {
		t.Fatal("expected base details to stay nil")
	}
	if len(first.Details) != 1 || first.Details["raw"] != "one" {
		t.Fatalf("unexpected first details: %v", first.Details)
	}
	if len(second.Details) != 2 || second.Details["status"] != 502 {
		t.Fatalf("unexpected second details: %v", second.Details)
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}

	wrapped := fmt.Errorf("fetch: %w", NewConfig("Missing environment variables"))
	if got := FromError(wrapped); got.Kind != KindConfig {
		t.Fatalf("expected config kind through wrapping, got %s", got.Kind)
	}
}

func TestConstructorsMapStatuses(t *testing.T) {
	cases := []struct {
		err    *AppError
		kind   Kind
		status int
	}{
		{NewConfig("Missing GEMINI_API_KEY"), KindConfig, http.StatusInternalServerError},
		{NewValidation("Missing prompt parameter"), KindValidation, http.StatusBadRequest},
		{ErrQuotaExceeded, KindQuotaExceeded, http.StatusTooManyRequests},
		{NewUpstream("Failed to fetch Notion data", stdErrors.New("eof")), KindUpstream, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if tc.err.Kind != tc.kind {
			t.Fatalf("%s: expected kind %s, got %s", tc.err.Message, tc.kind, tc.err.Kind)
		}
		if tc.err.StatusCode != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.err.Message, tc.status, tc.err.StatusCode)
		}
		if !IsKind(tc.err, tc.kind) {
			t.Fatalf("%s: IsKind returned false", tc.err.Message)
		}
	}
}

func TestIsKindRejectsPlainErrors(t *testing.T) {
	if IsKind(stdErrors.New("plain"), KindUpstream) {
		t.Fatal("plain errors carry no kind")
	}
}
