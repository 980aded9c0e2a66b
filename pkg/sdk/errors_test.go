package pieskieo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestStatusError_Is(t *testing.T) {
	err := fmt.Errorf("get doc: %w", &StatusError{StatusCode: 404})
	if !errors.Is(err, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	if errors.Is(err, ErrServer) {
		t.Error("404 should not match ErrServer")
	}
	if errors.Is(&StatusError{StatusCode: 418}, ErrBadRequest) {
		t.Error("418 should match no sentinel")
	}
}

func TestStatusError_Message(t *testing.T) {
	e := &StatusError{Method: "GET", Path: "/v1/doc/x", StatusCode: 500, Body: []byte("boom")}
	if got := e.Error(); got != "GET /v1/doc/x: status 500: boom" {
		t.Errorf("Error() = %q", got)
	}
	e.Body = nil
	if got := e.Error(); got != "GET /v1/doc/x: status 500" {
		t.Errorf("Error() = %q", got)
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(errors.New("plain")); got != 0 {
		t.Errorf("StatusCode(plain) = %d, want 0", got)
	}
	if got := StatusCode(fmt.Errorf("wrap: %w", &StatusError{StatusCode: 409})); got != 409 {
		t.Errorf("StatusCode = %d, want 409", got)
	}
}

func TestDecodeError_Unwrap(t *testing.T) {
	inner := errors.New("bad json")
	err := &DecodeError{Path: "/v1/sql", Err: inner}
	if !errors.Is(err, ErrDecode) || !errors.Is(err, inner) {
		t.Error("DecodeError should match ErrDecode and its cause")
	}
	if !strings.Contains(err.Error(), "/v1/sql") {
		t.Errorf("Error() = %q, want path", err.Error())
	}
}

func TestRecord_JSON(t *testing.T) {
	id := uuid.New()
	var r Record
	if err := json.Unmarshal([]byte(`["`+id.String()+`", {"a": 1}]`), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != id {
		t.Errorf("id = %s, want %s", r.ID, id)
	}
	var v struct{ A int }
	if err := r.Decode(&v); err != nil || v.A != 1 {
		t.Errorf("decode = %+v, %v", v, err)
	}

	for _, bad := range []string{`{"id":"x"}`, `["` + id.String() + `"]`, `["not-a-uuid", 1]`} {
		if err := json.Unmarshal([]byte(bad), &r); err == nil {
			t.Errorf("Unmarshal(%s) should fail", bad)
		}
	}

	b, err := json.Marshal(Record{ID: id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `["`+id.String()+`",null]` {
		t.Errorf("Marshal = %s", b)
	}
}
