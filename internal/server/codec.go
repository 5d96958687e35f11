package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/x-msgpack"
)

type codec func(v any) ([]byte, error)

var codecs = map[string]codec{
	contentTypeJSON:    json.Marshal,
	contentTypeMsgpack: msgpack.Marshal,
}

// negotiate picks the response content type: a URL suffix wins, then the
// highest ranked supported Accept entry, then JSON.
func negotiate(r *http.Request) string {
	if ct, ok := r.Context().Value(formatKey).(string); ok {
		return ct
	}

	type mediaRange struct {
		value string
		q     float64
	}

	var ranges []mediaRange
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		fields := strings.Split(part, ";")
		value := strings.ToLower(strings.TrimSpace(fields[0]))
		if value == "" {
			continue
		}

		q := 1.0
		for _, param := range fields[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.TrimSpace(k) == "q" {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = parsed
				}
			}
		}
		if q > 0 {
			ranges = append(ranges, mediaRange{value: value, q: q})
		}
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].q > ranges[j].q })

	for _, mr := range ranges {
		switch mr.value {
		case contentTypeJSON, contentTypeMsgpack:
			return mr.value
		case "*/*", "application/*":
			return contentTypeJSON
		}
	}
	return contentTypeJSON
}

// respond encodes body with the negotiated codec.
func respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	contentType := negotiate(r)

	data, err := codecs[contentType](body)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("content_type", contentType).Msg("Failed to encode response")
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write response")
	}
}
