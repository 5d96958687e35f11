package pagination

import (
	"encoding/json"
	"fmt"
)

// Envelope wraps a decoded 200 response body with its page relations.
type Envelope struct {
	// Data is the decoded JSON body.
	Data any `json:"data" msgpack:"data"`

	// Rel holds the relations parsed from the Link header (never nil).
	Rel Relations `json:"rel" msgpack:"rel"`
}

// NewEnvelope decodes body and parses linkHeader into an Envelope.
func NewEnvelope(body []byte, linkHeader string) (*Envelope, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}

	return &Envelope{
		Data: data,
		Rel:  ParseLinkHeader(linkHeader),
	}, nil
}

// Object returns Data as a JSON object, or nil when the body is not one.
func (e *Envelope) Object() map[string]any {
	if e == nil {
		return nil
	}
	obj, _ := e.Data.(map[string]any)
	return obj
}

// Clone returns a deep copy of e. JSON objects and arrays in Data are copied
// recursively so the copy can be modified without touching e.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}

	rel := make(Relations, len(e.Rel))
	for name, r := range e.Rel {
		rel[name] = r
	}
	return &Envelope{
		Data: cloneValue(e.Data),
		Rel:  rel,
	}
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
