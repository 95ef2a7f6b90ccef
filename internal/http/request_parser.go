// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// maxBodyBytes bounds every request body the API reads.
const maxBodyBytes = 1 << 20

var ErrInvalidBody = errors.New("invalid request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.IsJSONContent() {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", ErrInvalidBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrInvalidBody, p.err)
	}
	return p.err
}

// IsJSONContent reports whether the body should be decoded as JSON, either
// by content type or because it looks like a JSON object.
func (p *RequestBodyParser) IsJSONContent() bool {
	if strings.HasPrefix(strings.ToLower(p.contentType), "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(p.body))
	return strings.HasPrefix(trimmed, "{")
}

// Get returns a string value from the parsed data (JSON or form).
// Values are returned exactly as sent; credentials must not be altered.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// LoginRequest is the candidate submitted to POST /api/login.
type LoginRequest struct {
	Email    string
	Password string
}

// ParseLoginRequest reads {email, password} from a JSON or form body.
func ParseLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return LoginRequest{}, err
	}
	return LoginRequest{Email: p.Get("email"), Password: p.Get("password")}, nil
}

// ParseExpenseInput decodes a JSON {date, items} body.
// A missing items field is an empty list.
func ParseExpenseInput(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	var in core.ExpenseInput
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return in, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return in, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if in.Items == nil {
		in.Items = []core.RawItem{}
	}
	return in, nil
}

// ParseID extracts the {id} path segment as a positive integer.
func ParseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrInvalidID
	}
	return id, nil
}

// MonthFilter returns the trimmed ?month= query value; blank means unfiltered.
func MonthFilter(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("month"))
}
