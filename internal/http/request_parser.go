// This file implements utilities for parsing and validating HTTP request
// data: JSON bodies, limits and path parameters.

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

	"fairshare/internal/core"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 1 << 20

// MaxLimit caps the limit query parameter.
const MaxLimit = 500

var (
	errEmptyBody     = errors.New("request body is empty")
	errTrailingData  = errors.New("request body must contain a single JSON object")
	errInvalidLimit  = errors.New("limit must be a positive integer")
	errInvalidUserID = errors.New("user id must not be empty")
)

// DecodeExpenseInput reads an ExpenseInput from a JSON body. Free text
// fields are sanitized; the result is not validated.
func DecodeExpenseInput(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	var in core.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		return in, err
	}

	in.Title = sanitizeInput(in.Title)
	in.Notes = sanitizeInput(in.Notes)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.GroupID = sanitizeInput(in.GroupID)
	tags := in.Tags[:0]
	for _, t := range in.Tags {
		if t = sanitizeInput(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return in, nil
}

// DecodeEqualSplitInput reads an EqualSplitInput from a JSON body, cleaning
// its free text and user ids. The result is not validated.
func DecodeEqualSplitInput(w http.ResponseWriter, r *http.Request) (core.EqualSplitInput, error) {
	var in core.EqualSplitInput
	if err := decodeJSON(w, r, &in); err != nil {
		return in, err
	}
	in.Note = sanitizeInput(in.Note)
	in.GroupID = sanitizeInput(in.GroupID)
	in.PayerID = core.UserID(sanitizeInput(string(in.PayerID)))
	for i, id := range in.ParticipantIDs {
		in.ParticipantIDs[i] = core.UserID(sanitizeInput(string(id)))
	}
	return in, nil
}

// decodeJSON decodes exactly one JSON value from a size-capped body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

// ParseLimit reads the limit query parameter. An absent value returns def;
// values above MaxLimit are clamped.
func ParseLimit(query url.Values, def int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	return min(n, MaxLimit), nil
}

// ParseUserID cleans a user id taken from the path. The alias "me" maps to
// viewpoint when one is configured.
func ParseUserID(raw, viewpoint string) (core.UserID, error) {
	id := sanitizeInput(raw)
	if id == "me" && viewpoint != "" {
		id = viewpoint
	}
	if id == "" {
		return "", errInvalidUserID
	}
	return core.UserID(id), nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
