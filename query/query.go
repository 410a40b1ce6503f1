// Package query turns list-request parameters (field filters, comparison
// operators, free-text search, sort, pagination) into a MongoDB query plus
// pagination metadata, for any collection.
package query

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"vitrine/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// Options is a parsed, not-yet-executed list query.
type Options struct {
	Filter bson.M
	Sort   bson.D
	Page   int64
	Limit  int64
	Skip   int64
	// PageExplicit records whether the caller actually sent a page value;
	// only an explicit page can be out of range.
	PageExplicit bool
}

// keys consumed by the processor itself, never treated as field filters
var reservedKeys = []string{"page", "limit", "sort", "search"}

var operatorKey = regexp.MustCompile(`^([A-Za-z0-9_.]+)\[(gte|gt|lte|lt|eq|ne)\]$`)

// Parse builds Options from raw query values. exclude lists extra caller keys
// to leave out of filtering (on top of page/limit/sort/search).
func Parse(values url.Values, exclude []string) Options {
	filter := bson.M{}

	skip := func(key string) bool {
		for _, k := range reservedKeys {
			if key == k {
				return true
			}
		}
		for _, k := range exclude {
			if key == k {
				return true
			}
		}
		return false
	}

	for key, vals := range values {
		if skip(key) || len(vals) == 0 {
			continue
		}
		if m := operatorKey.FindStringSubmatch(key); m != nil {
			field, op := m[1], "$"+m[2]
			sub, _ := filter[field].(bson.M)
			if sub == nil {
				sub = bson.M{}
			}
			sub[op] = coerce(vals[0])
			filter[field] = sub
			continue
		}
		filter[key] = coerce(vals[0])
	}

	if s := values.Get("search"); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
		}
	}

	page := int64(DefaultPage)
	pageExplicit := false
	if p := values.Get("page"); p != "" {
		pageExplicit = true
		if n, err := strconv.ParseInt(p, 10, 64); err == nil && n > 0 {
			page = n
		}
	}

	limit := int64(DefaultLimit)
	if l := values.Get("limit"); l != "" {
		if n, err := strconv.ParseInt(l, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	skipN := (page - 1) * limit
	if skipN < 0 {
		skipN = 0
	}

	return Options{
		Filter:       filter,
		Sort:         parseSort(values.Get("sort")),
		Page:         page,
		Limit:        limit,
		Skip:         skipN,
		PageExplicit: pageExplicit,
	}
}

// parseSort handles "a,-b" specs; default is most recently created first.
func parseSort(spec string) bson.D {
	if spec == "" {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	var sort bson.D
	for _, field := range strings.Split(spec, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if len(sort) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return sort
}

// coerce converts a raw query value into the type MongoDB should compare
// with: number, bool, or string.
func coerce(s string) interface{} {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// LastPage computes the last valid page for a total document count.
func LastPage(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// CheckRange fails when the caller explicitly requested a page beyond the
// data. A defaulted page is never an error; it just yields an empty page.
func CheckRange(q Options, total int64) error {
	if !q.PageExplicit || q.Skip < total {
		return nil
	}
	last := LastPage(total, q.Limit)
	return apperr.Newf(http.StatusNotFound, "Page does not exist, the last available page is %d", last).
		WithHint(apperr.Hint{LastPage: last})
}

// Page is one executed page of results plus pagination metadata.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Total       int64 `json:"total"`
	CurrentPage int64 `json:"current_page"`
	LastPage    int64 `json:"last_page"`
}

// Run counts matches for the filter, validates the requested page, then
// executes the query with sort/skip/limit applied.
func Run[T any](ctx context.Context, coll *mongo.Collection, q Options) (Page[T], error) {
	var page Page[T]

	total, err := coll.CountDocuments(ctx, q.Filter)
	if err != nil {
		return page, err
	}
	if err := CheckRange(q, total); err != nil {
		return page, err
	}

	opts := options.Find().SetSort(q.Sort).SetSkip(q.Skip).SetLimit(q.Limit).
		SetCollation(&options.Collation{Locale: "en"})
	cursor, err := coll.Find(ctx, q.Filter, opts)
	if err != nil {
		return page, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return page, err
	}

	page.Items = items
	page.Total = total
	page.CurrentPage = q.Page
	page.LastPage = LastPage(total, q.Limit)
	return page, nil
}
