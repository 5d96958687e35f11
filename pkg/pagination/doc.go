// Package pagination parses and rebuilds Link relation headers of the
// GitHub REST API and wraps decoded response bodies into an Envelope.
//
// GitHub paginates collection and search endpoints with a Link header:
//
//	Link: <https://api.github.com/search/users?q=language%3Ago&page=2>; rel="next",
//	      <https://api.github.com/search/users?q=language%3Ago&page=34>; rel="last"
//
// ParseLinkHeader turns such a header into Relations keyed by relation name
// ("first", "prev", "next", "last"). Parsing never fails: a missing or
// malformed header yields an empty Relations value.
//
// Example usage:
//
//	rel := pagination.ParseLinkHeader(resp.Header.Get("Link"))
//	if next, ok := rel["next"]; ok {
//		fmt.Println("next page:", next.Page)
//	}
//
// A proxy that re-exposes the collection under its own URL rewrites the
// relations before formatting them back into a header:
//
//	w.Header().Set("Link", rel.Rewrite(r.URL).Format())
package pagination
