package utils

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello", "hello"},
		{"json fence removed", "```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"bare fence removed", "```\ntext\n```", "text"},
		{"uppercase language tag", "```JSON\n{}\n```", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Fatalf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Action string `json:"action"`
	}

	t.Run("whole string", func(t *testing.T) {
		var out payload
		if !ExtractJSON(`{"action":"next_step"}`, &out) {
			t.Fatal("expected parse to succeed")
		}
		if out.Action != "next_step" {
			t.Fatalf("unexpected action %q", out.Action)
		}
	})

	t.Run("fenced", func(t *testing.T) {
		var out payload
		if !ExtractJSON("```json\n{\"action\":\"confirm\"}\n```", &out) {
			t.Fatal("expected parse to succeed")
		}
		if out.Action != "confirm" {
			t.Fatalf("unexpected action %q", out.Action)
		}
	})

	t.Run("embedded in prose", func(t *testing.T) {
		var out payload
		if !ExtractJSON(`Here is my verdict: {"action":"proceed"} hope that helps`, &out) {
			t.Fatal("expected parse to succeed")
		}
		if out.Action != "proceed" {
			t.Fatalf("unexpected action %q", out.Action)
		}
	})

	t.Run("braces inside string literals", func(t *testing.T) {
		var out struct {
			Question string `json:"question"`
		}
		if !ExtractJSON(`text {"question":"what does {x} mean?"} trailing`, &out) {
			t.Fatal("expected parse to succeed")
		}
		if out.Question != "what does {x} mean?" {
			t.Fatalf("unexpected question %q", out.Question)
		}
	})

	t.Run("no json at all", func(t *testing.T) {
		var out payload
		if ExtractJSON("I refuse to answer in JSON", &out) {
			t.Fatal("expected parse to fail")
		}
	})

	t.Run("unbalanced braces", func(t *testing.T) {
		var out payload
		if ExtractJSON(`{"action":"confirm"`, &out) {
			t.Fatal("expected parse to fail")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		var out payload
		if ExtractJSON("", &out) {
			t.Fatal("expected parse to fail")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, 201, map[string]string{"ok": "yes"})

	if rec.Code != 201 {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestAudioWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	Audio(rec, "audio/wav", []byte{1, 2, 3})

	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Body.Len() != 3 {
		t.Fatalf("expected 3 bytes, got %d", rec.Body.Len())
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := MintSessionToken("iv-1", "c-1", time.Minute)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	claims, err := ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.InterviewID != "iv-1" || claims.CandidateID != "c-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := MintSessionToken("iv-1", "c-1", -time.Minute)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := ValidateSessionToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	if _, err := ExtractTokenFromHeader(""); err == nil {
		t.Fatal("expected error for missing header")
	}
	if _, err := ExtractTokenFromHeader("Basic abc"); err == nil {
		t.Fatal("expected error for non-bearer header")
	}
	got, err := ExtractTokenFromHeader("Bearer abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abc123" {
		t.Fatalf("unexpected token %q", got)
	}
}
