package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-api-client/pkg/client"
)

// accountTypes maps the route parameter to the GitHub search type
// qualifier; "accounts" searches users and organizations.
var accountTypes = map[string]string{
	"users":    "user",
	"orgs":     "org",
	"accounts": "",
}

var (
	sortValues  = []string{"followers", "repositories", "joined"}
	orderValues = []string{"asc", "desc"}
)

// searchRequest is a validated v1 search request.
type searchRequest struct {
	Lang string
	Opts client.SearchOptions
}

// fieldErrors collects one message per invalid parameter, in check order.
type fieldErrors []map[string]string

func (f *fieldErrors) add(field, format string, args ...any) {
	*f = append(*f, map[string]string{field: fmt.Sprintf(format, args...)})
}

// parseSearchRequest validates the path and query parameters of a v1
// search.
func parseSearchRequest(accountType string, query url.Values) (*searchRequest, fieldErrors) {
	var errs fieldErrors
	req := &searchRequest{}

	typ, ok := accountTypes[accountType]
	if !ok {
		errs.add("account_type", "account_type must be one of users, orgs, accounts.")
	}
	req.Opts.Type = typ

	if req.Lang = query.Get("lang"); req.Lang == "" {
		errs.add("lang", "lang can not be empty.")
	}

	if v := query.Get("sort"); v != "" {
		if !contains(sortValues, v) {
			errs.add("sort", "sort must be one of %v.", sortValues)
		}
		req.Opts.Sort = v
	}

	if v := query.Get("order"); v != "" {
		if !contains(orderValues, v) {
			errs.add("order", "order must be one of %v.", orderValues)
		}
		req.Opts.Order = v
	}

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs.add("page", "page is not integer.")
		case page <= 0:
			errs.add("page", "page must be greater than 0.")
		}
		req.Opts.Page = page
	}

	if v := query.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		switch {
		case err != nil:
			errs.add("per_page", "per_page is not integer.")
		case perPage <= 0 || perPage > 100:
			errs.add("per_page", "per_page must be between 1 and 100.")
		}
		req.Opts.PerPage = perPage
	}

	return req, errs
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// handleSearchV1 searches accounts by language, populates every result
// item and responds with the search object extended by the ids of the
// items that could not be populated.
func (s *Server) handleSearchV1(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, errs := parseSearchRequest(chi.URLParam(r, "account_type"), r.URL.Query())
	if len(errs) > 0 {
		s.fail(w, r, &apiError{
			Status:      http.StatusBadRequest,
			Message:     "bad request params",
			Description: errs,
		})
		return
	}

	env, err := s.gh.SearchUsers(ctx, req.Lang, req.Opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	result := env.Object()
	if result == nil {
		s.fail(w, r, fmt.Errorf("search response is not an object: %T", env.Data))
		return
	}

	rawItems, _ := result["items"].([]any)
	items := make([]client.Item, 0, len(rawItems))
	for _, raw := range rawItems {
		if obj, ok := raw.(map[string]any); ok {
			items = append(items, client.Item(obj))
		}
	}

	incomplete, err := s.gh.Populate(ctx, items)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	body := make(map[string]any, len(result)+1)
	for k, v := range result {
		body[k] = v
	}
	if _, ok := body["items"]; !ok {
		body["items"] = []any{}
	}
	body["incomplete"] = incomplete

	if len(env.Rel) > 0 {
		w.Header().Add("Link", env.Rel.Rewrite(selfURL(r)).Format())
	}

	zerolog.Ctx(ctx).Debug().
		Str("lang", req.Lang).
		Int("items", len(items)).
		Int("incomplete", len(incomplete)).
		Msg("Search served")

	respond(w, r, http.StatusOK, body)
}

// selfURL is the URL the caller used for r, including a format suffix.
func selfURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     originalPath(r),
		RawQuery: r.URL.RawQuery,
	}
}
