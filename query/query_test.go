package query

import (
	"errors"
	"net/url"
	"testing"

	"vitrine/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseOperatorFilter(t *testing.T) {
	values := url.Values{}
	values.Set("price[gte]", "10")
	values.Set("price[lt]", "50")
	values.Set("category", "shoes")

	q := Parse(values, nil)

	sub, ok := q.Filter["price"].(bson.M)
	if !ok {
		t.Fatalf("expected price sub-filter, got %#v", q.Filter["price"])
	}
	if sub["$gte"] != 10.0 {
		t.Errorf("expected $gte 10, got %v", sub["$gte"])
	}
	if sub["$lt"] != 50.0 {
		t.Errorf("expected $lt 50, got %v", sub["$lt"])
	}
	if q.Filter["category"] != "shoes" {
		t.Errorf("expected plain equality filter, got %v", q.Filter["category"])
	}
}

func TestParseSearch(t *testing.T) {
	values := url.Values{}
	values.Set("search", "shoe")

	q := Parse(values, nil)

	or, ok := q.Filter["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected $or over two fields, got %#v", q.Filter["$or"])
	}
	first := or[0].(bson.M)
	re, ok := first["name"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected regex match on name, got %#v", first["name"])
	}
	if re.Pattern != "shoe" || re.Options != "i" {
		t.Errorf("expected case-insensitive 'shoe' regex, got %+v", re)
	}
	if _, present := q.Filter["search"]; present {
		t.Error("search key must not leak into the filter")
	}
}

func TestParseSort(t *testing.T) {
	values := url.Values{}
	values.Set("sort", "price,-createdAt")

	q := Parse(values, nil)

	want := bson.D{{Key: "price", Value: 1}, {Key: "createdAt", Value: -1}}
	if len(q.Sort) != len(want) {
		t.Fatalf("expected %d sort keys, got %d", len(want), len(q.Sort))
	}
	for i := range want {
		if q.Sort[i] != want[i] {
			t.Errorf("sort[%d]: expected %+v, got %+v", i, want[i], q.Sort[i])
		}
	}
}

func TestParseDefaultSort(t *testing.T) {
	q := Parse(url.Values{}, nil)
	if len(q.Sort) != 1 || q.Sort[0].Key != "createdAt" || q.Sort[0].Value != -1 {
		t.Errorf("expected default createdAt descending, got %+v", q.Sort)
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name         string
		page, limit  string
		wantPage     int64
		wantLimit    int64
		wantSkip     int64
		wantExplicit bool
	}{
		{"defaults", "", "", 1, 100, 0, false},
		{"explicit", "3", "20", 3, 20, 40, true},
		{"bad page falls back", "zero", "10", 1, 10, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := url.Values{}
			if tt.page != "" {
				values.Set("page", tt.page)
			}
			if tt.limit != "" {
				values.Set("limit", tt.limit)
			}
			q := Parse(values, nil)
			if q.Page != tt.wantPage || q.Limit != tt.wantLimit || q.Skip != tt.wantSkip {
				t.Errorf("got page=%d limit=%d skip=%d", q.Page, q.Limit, q.Skip)
			}
			if q.PageExplicit != tt.wantExplicit {
				t.Errorf("PageExplicit = %v, want %v", q.PageExplicit, tt.wantExplicit)
			}
		})
	}
}

func TestParseExclude(t *testing.T) {
	values := url.Values{}
	values.Set("fields", "name,price")
	values.Set("name", "boot")

	q := Parse(values, []string{"fields"})

	if _, present := q.Filter["fields"]; present {
		t.Error("excluded key must not appear in the filter")
	}
	if q.Filter["name"] != "boot" {
		t.Error("non-excluded key should still filter")
	}
}

func TestLastPage(t *testing.T) {
	if got := LastPage(5, 2); got != 3 {
		t.Errorf("LastPage(5,2) = %d, want 3", got)
	}
	if got := LastPage(0, 2); got != 0 {
		t.Errorf("LastPage(0,2) = %d, want 0", got)
	}
	if got := LastPage(4, 2); got != 2 {
		t.Errorf("LastPage(4,2) = %d, want 2", got)
	}
}

func TestCheckRange(t *testing.T) {
	values := url.Values{}
	values.Set("page", "4")
	values.Set("limit", "2")
	q := Parse(values, nil)

	err := CheckRange(q, 5)
	if err == nil {
		t.Fatal("expected out-of-range error for page 4 of 5 docs at limit 2")
	}
	var se *apperr.ShopError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShopError, got %T", err)
	}
	if len(se.Hints) == 0 || se.Hints[0].LastPage != 3 {
		t.Errorf("expected hint carrying last page 3, got %+v", se.Hints)
	}
}

func TestCheckRangeImplicitPage(t *testing.T) {
	// a defaulted page past the data is an empty page, not an error
	q := Parse(url.Values{}, nil)
	if err := CheckRange(q, 0); err != nil {
		t.Errorf("implicit page must never be out of range, got %v", err)
	}
}

func TestCheckRangeInRange(t *testing.T) {
	values := url.Values{}
	values.Set("page", "1")
	values.Set("limit", "2")
	q := Parse(values, nil)
	if err := CheckRange(q, 5); err != nil {
		t.Errorf("page 1 of 5 docs should be valid, got %v", err)
	}
}
