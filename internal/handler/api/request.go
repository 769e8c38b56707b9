// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errInvalidBody is returned for bodies that cannot be decoded.
var errInvalidBody = errors.New("invalid request body")

// fields is a decoded request body. Values are strings for url-encoded
// forms and JSON values (decoded with UseNumber) otherwise.
type fields map[string]any

// readFields decodes a JSON or url-encoded form body. An empty body yields
// no fields.
func readFields(w http.ResponseWriter, r *http.Request) (fields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		f := make(fields, len(r.PostForm))
		for k := range r.PostForm {
			f[k] = r.PostForm.Get(k)
		}
		return f, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	f := fields{}
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return fields{}, nil
		}
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return f, nil
}

// Text returns the field as a string, or nil when it is absent or null.
// Numbers and booleans are rendered in their JSON form.
func (f fields) Text(key string) *string {
	v, ok := f[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}

// Int64 returns the field as an integer. JSON numbers and numeric strings
// are accepted; anything else is treated as absent.
func (f fields) Int64(key string) *int64 {
	v, ok := f[key]
	if !ok || v == nil {
		return nil
	}
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = strings.TrimSpace(t)
	default:
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &n
	}
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) || fl > math.MaxInt64 || fl < math.MinInt64 {
		return nil
	}
	n := int64(fl)
	return &n
}
