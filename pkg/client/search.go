package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/github-api-client/pkg/pagination"
)

// SearchOptions narrows and orders a user search.
type SearchOptions struct {
	// Type restricts the account type ("user" or "org"); empty searches both.
	Type string

	// Sort is one of "followers", "repositories" or "joined"; empty
	// sorts by best match.
	Sort string

	// Order is "asc" or "desc".
	Order string

	// Page and PerPage select the result page; 0 leaves the GitHub default.
	Page    int
	PerPage int
}

// SearchUsers searches accounts whose repositories use lang.
//
// Search requests carry query parameters and are therefore never cached.
func (c *Client) SearchUsers(ctx context.Context, lang string, opts SearchOptions) (*pagination.Envelope, error) {
	return c.Request(ctx, "/search/users", searchParams(lang, opts))
}

func searchParams(lang string, opts SearchOptions) url.Values {
	if strings.ContainsAny(lang, " \t") {
		lang = strconv.Quote(lang)
	}

	q := "language:" + lang
	if opts.Type != "" {
		q += " type:" + opts.Type
	}

	params := url.Values{"q": {q}}
	if opts.Sort != "" {
		params.Set("sort", opts.Sort)
	}
	if opts.Order != "" {
		params.Set("order", opts.Order)
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	return params
}
