// Package query turns untrusted request parameters into typed, validated list
// criteria. Every value that reaches SQL text (sort column, direction) comes
// from a closed whitelist; free text is only ever bound as a parameter.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtweet/backend/internal/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination is a 1-based offset page.
type Pagination struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before the page starts.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FetchLimit is one more than Limit so callers can tell whether another page exists.
func (p Pagination) FetchLimit() int {
	return p.Limit + 1
}

// ParsePagination reads page and limit. Absent values default; malformed or
// out-of-range values are rejected.
func ParsePagination(values url.Values) (Pagination, error) {
	page, err := positiveInt(values, "page", DefaultPage)
	if err != nil {
		return Pagination{}, err
	}
	limit, err := positiveInt(values, "limit", DefaultLimit)
	if err != nil {
		return Pagination{}, err
	}
	if limit > MaxLimit {
		return Pagination{}, apperr.Newf(apperr.InvalidRequest, "limit must not exceed %d", MaxLimit)
	}
	return Pagination{Page: page, Limit: limit}, nil
}

func positiveInt(values url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Newf(apperr.InvalidRequest, "%s must be a positive integer", key)
	}
	return n, nil
}

// SortField names a sortable video attribute.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByViews     SortField = "views"
	SortByTitle     SortField = "title"
	SortByDuration  SortField = "duration"
)

var sortColumns = map[SortField]string{
	SortByCreatedAt: "v.created_at",
	SortByViews:     "v.views",
	SortByTitle:     "v.title",
	SortByDuration:  "v.duration_seconds",
}

// Direction is asc or desc.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// VideoQuery filters, sorts and paginates the video feed.
type VideoQuery struct {
	Pagination
	Text     string
	OwnerID  string
	SortBy   SortField
	SortType Direction
}

// ParseVideoList reads page, limit, query, sortBy, sortType and userId.
func ParseVideoList(values url.Values) (VideoQuery, error) {
	page, err := ParsePagination(values)
	if err != nil {
		return VideoQuery{}, err
	}

	q := VideoQuery{
		Pagination: page,
		Text:       strings.TrimSpace(values.Get("query")),
		SortBy:     SortByCreatedAt,
		SortType:   Descending,
	}

	if raw := strings.TrimSpace(values.Get("sortBy")); raw != "" {
		field := SortField(raw)
		if _, ok := sortColumns[field]; !ok {
			return VideoQuery{}, apperr.Newf(apperr.InvalidRequest, "sortBy must be one of createdAt, views, title, duration")
		}
		q.SortBy = field
	}

	if raw := strings.ToLower(strings.TrimSpace(values.Get("sortType"))); raw != "" {
		switch Direction(raw) {
		case Ascending, Descending:
			q.SortType = Direction(raw)
		default:
			return VideoQuery{}, apperr.New(apperr.InvalidRequest, "sortType must be asc or desc")
		}
	}

	if raw := strings.TrimSpace(values.Get("userId")); raw != "" {
		id, err := ID("userId", raw)
		if err != nil {
			return VideoQuery{}, err
		}
		q.OwnerID = id
	}

	return q, nil
}

// OrderBy renders the ORDER BY clause. The id column breaks ties in the same
// direction so equal sort keys still page deterministically.
func (q VideoQuery) OrderBy() string {
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[SortByCreatedAt]
	}
	dir := "DESC"
	if q.SortType == Ascending {
		dir = "ASC"
	}
	return column + " " + dir + ", v.id " + dir
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps text for a case-insensitive substring match with ILIKE.
// Wildcards in the input match literally. The match cannot use an index.
func LikePattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

// ParseSearch reads the required q parameter and pagination for search.
func ParseSearch(values url.Values) (string, Pagination, error) {
	text := strings.TrimSpace(values.Get("q"))
	if text == "" {
		return "", Pagination{}, apperr.New(apperr.InvalidRequest, "search query is required")
	}
	page, err := ParsePagination(values)
	if err != nil {
		return "", Pagination{}, err
	}
	return text, page, nil
}

// ID validates an identifier taken from a path or query parameter.
func ID(name, raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidRequest, "invalid "+name, err)
	}
	return parsed.String(), nil
}
