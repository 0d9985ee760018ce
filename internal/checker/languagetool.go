package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
)

// DefaultEndpoint is the public LanguageTool check endpoint.
const DefaultEndpoint = "https://api.languagetoolplus.com/v2/check"

// defaultTimeout bounds a single check request.
const defaultTimeout = 15 * time.Second

// LanguageTool is a Client that submits text to a LanguageTool-protocol
// HTTP service. The service reports match offsets in UTF-16 code units;
// Check converts them to rune offsets into the submitted text.
type LanguageTool struct {
	httpClient *http.Client
	endpoint   string
	language   string
	apiKey     string
	username   string
}

// LanguageToolOption configures a LanguageTool client.
type LanguageToolOption func(*LanguageTool)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) LanguageToolOption {
	return func(lt *LanguageTool) {
		lt.httpClient = c
	}
}

// WithAPIKey sets the API key and username sent with each request.
func WithAPIKey(username, apiKey string) LanguageToolOption {
	return func(lt *LanguageTool) {
		lt.username = username
		lt.apiKey = apiKey
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) LanguageToolOption {
	return func(lt *LanguageTool) {
		lt.httpClient.Timeout = d
	}
}

// NewLanguageTool creates a client for the given endpoint and language
// tag (e.g. "en-US"). The tag is validated up front so a bad
// configuration fails at startup rather than on the first check.
func NewLanguageTool(endpoint, lang string, opts ...LanguageToolOption) (*LanguageTool, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	if _, err := language.Parse(lang); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrLanguageInvalid, lang)
	}

	lt := &LanguageTool{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   endpoint,
		language:   lang,
	}

	for _, opt := range opts {
		opt(lt)
	}

	return lt, nil
}

// Check implements Client.
func (lt *LanguageTool) Check(ctx context.Context, text string) ([]Finding, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", lt.language)
	if lt.apiKey != "" {
		form.Set("username", lt.username)
		form.Set("apiKey", lt.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := lt.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return parseMatches(body, text)
}

// parseMatches extracts findings from a LanguageTool response body and
// converts the service's UTF-16 offsets to rune offsets into text.
func parseMatches(body []byte, text string) ([]Finding, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedResponse
	}

	matches := gjson.GetBytes(body, "matches")
	if !matches.Exists() || !matches.IsArray() {
		return nil, ErrMalformedResponse
	}

	conv := newUTF16Converter(text)

	var findings []Finding
	matches.ForEach(func(_, m gjson.Result) bool {
		offset := m.Get("offset")
		length := m.Get("length")
		if !offset.Exists() || !length.Exists() {
			return true // skip malformed match, keep the rest
		}

		start, okStart := conv.runeOffset(int(offset.Int()))
		end, okEnd := conv.runeOffset(int(offset.Int()) + int(length.Int()))
		if !okStart || !okEnd {
			return true // offsets outside the submitted text
		}

		var replacements []string
		m.Get("replacements").ForEach(func(_, r gjson.Result) bool {
			if v := r.Get("value"); v.Exists() {
				replacements = append(replacements, v.String())
			}
			return true
		})

		findings = append(findings, Finding{
			Message:      m.Get("message").String(),
			Offset:       start,
			Length:       end - start,
			Replacements: replacements,
		})
		return true
	})

	return findings, nil
}

// utf16Converter maps UTF-16 code unit offsets to rune offsets for one
// submitted text.
type utf16Converter struct {
	// runeAt[u16] is the rune offset of the u16-th UTF-16 code unit.
	runeAt []int
}

func newUTF16Converter(text string) *utf16Converter {
	c := &utf16Converter{}
	runeIdx := 0
	for _, r := range text {
		c.runeAt = append(c.runeAt, runeIdx)
		if r >= 0x10000 {
			// Surrogate pair: both code units map to the same rune
			c.runeAt = append(c.runeAt, runeIdx)
		}
		runeIdx++
	}
	// One-past-the-end position
	c.runeAt = append(c.runeAt, runeIdx)
	return c
}

// runeOffset converts a UTF-16 code unit offset. Returns false when the
// offset lies outside the text.
func (c *utf16Converter) runeOffset(u16 int) (int, bool) {
	if u16 < 0 || u16 >= len(c.runeAt) {
		return 0, false
	}
	return c.runeAt[u16], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
