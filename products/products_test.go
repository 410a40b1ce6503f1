package products

import (
	"encoding/json"
	"errors"
	"testing"

	"vitrine/models"
)

func mapGetter(entries map[string]string) func(string) (string, error) {
	return func(key string) (string, error) {
		v, ok := entries[key]
		if !ok {
			return "", errors.New("nil")
		}
		return v, nil
	}
}

func TestCachedProductByID(t *testing.T) {
	raw, _ := json.Marshal(models.Product{ProductID: "p1", Name: "Lamp", Slug: "lamp"})
	get := mapGetter(map[string]string{"product:p1": string(raw)})

	product, ok := cachedProduct(get, "p1")
	if !ok {
		t.Fatal("expected a cache hit by id")
	}
	if product.ProductID != "p1" || product.Name != "Lamp" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestCachedProductBySlugAlias(t *testing.T) {
	raw, _ := json.Marshal(models.Product{ProductID: "p1", Name: "Lamp", Slug: "lamp"})
	get := mapGetter(map[string]string{
		"product:p1":        string(raw),
		"product:slug:lamp": "p1",
	})

	product, ok := cachedProduct(get, "lamp")
	if !ok {
		t.Fatal("expected a cache hit by slug")
	}
	if product.ProductID != "p1" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestCachedProductMiss(t *testing.T) {
	get := mapGetter(map[string]string{})
	if _, ok := cachedProduct(get, "lamp"); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	broken := mapGetter(map[string]string{"product:p1": "{not json"})
	if _, ok := cachedProduct(broken, "p1"); ok {
		t.Fatal("expected a miss on a corrupt entry")
	}
}
