package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewLanguageToolValidatesLanguage(t *testing.T) {
	if _, err := NewLanguageTool("", "en-US"); err != nil {
		t.Fatalf("valid tag rejected: %v", err)
	}

	if _, err := NewLanguageTool("", "!!"); !errors.Is(err, ErrLanguageInvalid) {
		t.Fatalf("expected ErrLanguageInvalid, got %v", err)
	}
}

func TestLanguageToolCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		if got := r.FormValue("text"); got != "Teh cat sat." {
			t.Errorf("expected submitted text, got %q", got)
		}
		if got := r.FormValue("language"); got != "en-US" {
			t.Errorf("expected language en-US, got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id header")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matches":[
			{"message":"Possible typo","offset":0,"length":3,
			 "replacements":[{"value":"The"},{"value":"Tech"}]}
		]}`))
	}))
	defer srv.Close()

	lt, err := NewLanguageTool(srv.URL, "en-US")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	findings, err := lt.Check(context.Background(), "Teh cat sat.")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Message != "Possible typo" {
		t.Errorf("unexpected message %q", f.Message)
	}
	if f.Offset != 0 || f.Length != 3 {
		t.Errorf("expected offset 0 length 3, got %d/%d", f.Offset, f.Length)
	}
	if len(f.Replacements) != 2 || f.Replacements[0] != "The" {
		t.Errorf("unexpected replacements %v", f.Replacements)
	}
}

func TestLanguageToolCheckConvertsUTF16Offsets(t *testing.T) {
	// Text starts with an emoji (1 rune, 2 UTF-16 code units), so the
	// service reports "wrld" at UTF-16 offset 3 while the rune offset is 2.
	text := "🙂 wrld"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[
			{"message":"Spelling","offset":3,"length":4,
			 "replacements":[{"value":"world"}]}
		]}`))
	}))
	defer srv.Close()

	lt, err := NewLanguageTool(srv.URL, "en-US")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	findings, err := lt.Check(context.Background(), text)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Offset != 2 || f.Length != 4 {
		t.Errorf("expected rune offset 2 length 4, got %d/%d", f.Offset, f.Length)
	}

	runes := []rune(text)
	if got := string(runes[f.Offset : f.Offset+f.Length]); got != "wrld" {
		t.Errorf("finding does not cover the flagged word: %q", got)
	}
}

func TestLanguageToolCheckStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	lt, err := NewLanguageTool(srv.URL, "en-US")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = lt.Check(context.Background(), "text")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", statusErr.Code)
	}
}

func TestLanguageToolCheckMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing matches", `{"software":{}}`},
		{"matches not array", `{"matches":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			lt, err := NewLanguageTool(srv.URL, "en-US")
			if err != nil {
				t.Fatalf("new client: %v", err)
			}

			if _, err := lt.Check(context.Background(), "text"); !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestLanguageToolCheckUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before the request

	lt, err := NewLanguageTool(srv.URL, "en-US")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := lt.Check(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLanguageToolSkipsOutOfRangeMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[
			{"message":"beyond end","offset":100,"length":3,"replacements":[]},
			{"message":"ok","offset":0,"length":2,"replacements":[]}
		]}`))
	}))
	defer srv.Close()

	lt, err := NewLanguageTool(srv.URL, "en-US")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	findings, err := lt.Check(context.Background(), "hi there")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if len(findings) != 1 || findings[0].Message != "ok" {
		t.Fatalf("expected only the in-range finding, got %v", findings)
	}
}

func TestParseLLMMatches(t *testing.T) {
	payload := "```json\n{\"matches\":[{\"message\":\"typo\",\"offset\":0,\"length\":3,\"replacements\":[\"The\"]}]}\n```"

	findings, err := parseLLMMatches(payload, "Teh cat")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Replacements[0] != "The" {
		t.Errorf("unexpected replacements %v", findings[0].Replacements)
	}
}

func TestParseLLMMatchesRejectsGarbage(t *testing.T) {
	if _, err := parseLLMMatches("sorry, I cannot do that", "text"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
