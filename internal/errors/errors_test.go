package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestSnapError_Error(t *testing.T) {
	err := &SnapError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "not found: books_static",
	}

	expected := "NOT_FOUND: not found: books_static"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("source is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "source is required" {
		t.Errorf("Message = %q, want %q", err.Message, "source is required")
	}
}

func TestNewInputNotFound(t *testing.T) {
	err := NewInputNotFound("data/books_p5.csv")

	if err.Code != ErrInputNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrInputNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["path"] != "data/books_p5.csv" {
		t.Errorf("Details[path] = %v, want %q", err.Details["path"], "data/books_p5.csv")
	}
}

func TestNewUnknownSource(t *testing.T) {
	err := NewUnknownSource("udn_sports")

	if err.Code != ErrUnknownSource {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnknownSource)
	}
	if err.Details["source"] != "udn_sports" {
		t.Errorf("Details[source] = %v, want %q", err.Details["source"], "udn_sports")
	}
}

func TestNewSchemaIncompatible(t *testing.T) {
	err := NewSchemaIncompatible("old.csv", "id")

	if err.Code != ErrSchemaIncompatible {
		t.Errorf("Code = %q, want %q", err.Code, ErrSchemaIncompatible)
	}
	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	if err.Details["column"] != "id" {
		t.Errorf("Details[column] = %v, want %q", err.Details["column"], "id")
	}
}

func TestNewInvalidSnapshot(t *testing.T) {
	err := NewInvalidSnapshot("old.csv", fmt.Errorf("bare \" in non-quoted field"))

	if err.Code != ErrInvalidSnapshot {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidSnapshot)
	}
	expected := "cannot read snapshot old.csv: bare \" in non-quoted field"
	if err.Message != expected {
		t.Errorf("Message = %q, want %q", err.Message, expected)
	}

	nilErr := NewInvalidSnapshot("old.csv", nil)
	if nilErr.Message != "cannot read snapshot old.csv: malformed snapshot" {
		t.Errorf("Message = %q", nilErr.Message)
	}
}

func TestNewWriteFailed(t *testing.T) {
	err := NewWriteFailed("reports/summary_x.json", fmt.Errorf("permission denied"))

	if err.Code != ErrWriteFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrWriteFailed)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if err.Details["path"] != "reports/summary_x.json" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("batch")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Message != "batch cancelled" {
		t.Errorf("Message = %q, want %q", err.Message, "batch cancelled")
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("disk full"))
	if err.Message != "disk full" {
		t.Errorf("Message = %q, want %q", err.Message, "disk full")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{
			name: "matching code",
			err:  NewInputNotFound("a.csv"),
			code: ErrInputNotFound,
			want: true,
		},
		{
			name: "different code",
			err:  NewInputNotFound("a.csv"),
			code: ErrSchemaIncompatible,
			want: false,
		},
		{
			name: "wrapped snap error",
			err:  fmt.Errorf("load old: %w", NewSchemaIncompatible("a.csv", "id")),
			code: ErrSchemaIncompatible,
			want: true,
		},
		{
			name: "plain error",
			err:  stderrors.New("boom"),
			code: ErrInternal,
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			code: ErrInternal,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(NewInputNotFound("new.csv")) {
		t.Error("missing input should be recoverable")
	}
	if IsRecoverable(NewSchemaIncompatible("new.csv", "id")) {
		t.Error("missing id column should not be recoverable")
	}
	if IsRecoverable(NewWriteFailed("out", nil)) {
		t.Error("write failure should not be recoverable")
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("diff: %w", NewUnknownSource("x"))
	sErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() = false, want true")
	}
	if sErr.Code != ErrUnknownSource {
		t.Errorf("Code = %q, want %q", sErr.Code, ErrUnknownSource)
	}

	if _, ok := As(stderrors.New("plain")); ok {
		t.Error("As() = true for plain error")
	}
}

func TestObject(t *testing.T) {
	obj := Object(NewInputNotFound("new.csv"))
	if obj["code"] != ErrInputNotFound {
		t.Errorf("code = %v, want %v", obj["code"], ErrInputNotFound)
	}
	if obj["status"] != 404 {
		t.Errorf("status = %v, want 404", obj["status"])
	}
	if _, ok := obj["details"]; !ok {
		t.Error("details missing for non-internal error")
	}

	obj = Object(stderrors.New("sql: database is locked"))
	if obj["code"] != ErrInternal {
		t.Errorf("code = %v, want %v", obj["code"], ErrInternal)
	}
	if _, ok := obj["details"]; ok {
		t.Error("internal error should not carry details")
	}
}
