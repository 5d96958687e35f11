package pagination

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// relationOrder is the order in which Format emits relations.
var relationOrder = []string{"first", "prev", "next", "last"}

// Relation is a single page relation extracted from a Link header.
type Relation struct {
	// Rel is the relation name (e.g. "next").
	Rel string `json:"rel" msgpack:"rel"`

	// Page is the page number the relation points at.
	Page int `json:"page" msgpack:"page"`

	// PerPage is the page size, 0 when the link does not carry one.
	PerPage int `json:"per_page,omitempty" msgpack:"per_page,omitempty"`

	// URL is the full target URL of the relation.
	URL string `json:"url" msgpack:"url"`
}

// Relations maps relation names to relations.
type Relations map[string]Relation

// ParseLinkHeader parses a Link header into Relations.
// An empty or malformed header yields an empty, non-nil map.
func ParseLinkHeader(header string) Relations {
	rels := Relations{}
	header = strings.TrimSpace(header)
	if header == "" {
		return rels
	}

	for _, part := range splitLinks(header) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		parsed, err := parseLink(part)
		if err != nil {
			return Relations{}
		}
		for _, r := range parsed {
			rels[r.Rel] = r
		}
	}

	return rels
}

// splitLinks splits a Link header at the commas separating its elements.
// Commas inside a <url> or a quoted parameter value belong to the element.
func splitLinks(header string) []string {
	var (
		parts   []string
		start   int
		inURL   bool
		inQuote bool
	)
	for i := 0; i < len(header); i++ {
		switch c := header[i]; {
		case inQuote:
			if c == '\\' {
				i++
			} else if c == '"' {
				inQuote = false
			}
		case inURL:
			if c == '>' {
				inURL = false
			}
		case c == '<':
			inURL = true
		case c == '"':
			inQuote = true
		case c == ',':
			parts = append(parts, header[start:i])
			start = i + 1
		}
	}
	return append(parts, header[start:])
}

// parseLink parses one `<url>; rel="a b"` element. A link may declare
// several space separated relation names.
func parseLink(part string) ([]Relation, error) {
	end := strings.IndexByte(part, '>')
	if !strings.HasPrefix(part, "<") || end < 0 {
		return nil, fmt.Errorf("link target not enclosed in angle brackets: %q", part)
	}
	target := part[1:end]

	segments := strings.Split(part[end+1:], ";")
	if strings.TrimSpace(segments[0]) != "" {
		return nil, fmt.Errorf("unexpected text after link target: %q", part)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse link url: %w", err)
	}

	var names []string
	for _, param := range segments[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || strings.TrimSpace(key) != "rel" {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		names = append(names, strings.Fields(value)...)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("link %q has no rel parameter", target)
	}

	query := u.Query()
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil {
		return nil, fmt.Errorf("link %q has no page number: %w", target, err)
	}

	perPage := 0
	if raw := query.Get("per_page"); raw != "" {
		if perPage, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("link %q has invalid per_page: %w", target, err)
		}
	}

	rels := make([]Relation, 0, len(names))
	for _, name := range names {
		rels = append(rels, Relation{
			Rel:     name,
			Page:    page,
			PerPage: perPage,
			URL:     target,
		})
	}
	return rels, nil
}

// Rewrite returns a copy of the relations pointing at base instead of the
// upstream API. The page and per_page query parameters of base are replaced
// by the ones of each relation; per_page is dropped when the relation has none.
func (r Relations) Rewrite(base *url.URL) Relations {
	out := make(Relations, len(r))
	for name, rel := range r {
		u := *base
		query := base.Query()
		query.Set("page", strconv.Itoa(rel.Page))
		if rel.PerPage > 0 {
			query.Set("per_page", strconv.Itoa(rel.PerPage))
		} else {
			query.Del("per_page")
		}
		u.RawQuery = query.Encode()

		rel.URL = u.String()
		out[name] = rel
	}
	return out
}

// Format renders the relations as a Link header value. Well-known relations
// come first in first/prev/next/last order, unknown ones follow sorted by name.
func (r Relations) Format() string {
	if len(r) == 0 {
		return ""
	}

	parts := make([]string, 0, len(r))
	seen := make(map[string]bool, len(r))
	for _, name := range relationOrder {
		if rel, ok := r[name]; ok {
			parts = append(parts, formatLink(name, rel))
			seen[name] = true
		}
	}

	var rest []string
	for name := range r {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		parts = append(parts, formatLink(name, r[name]))
	}

	return strings.Join(parts, ", ")
}

func formatLink(name string, rel Relation) string {
	return fmt.Sprintf(`<%s>; rel="%s"`, rel.URL, name)
}
