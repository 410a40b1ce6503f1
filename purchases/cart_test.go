package purchases

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vitrine/apperr"
	"vitrine/models"
)

func openPurchase(lines ...models.PurchaseLine) models.Purchase {
	return models.Purchase{
		PurchaseID: "pur_test",
		Buyer:      "u1",
		Lines:      lines,
		Status:     models.PurchaseOpen,
		Version:    1,
	}
}

func TestApplyAddDefaultsQuantityToOne(t *testing.T) {
	cart := openPurchase()
	if err := applyAdd(&cart, "p1", 0); err != nil {
		t.Fatalf("applyAdd: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].Product != "p1" || cart.Lines[0].Quantity != 1 {
		t.Fatalf("unexpected line %+v", cart.Lines[0])
	}
}

func TestApplyAddDuplicateFailsWithHint(t *testing.T) {
	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})
	err := applyAdd(&cart, "p1", 1)
	if err == nil {
		t.Fatal("expected error on duplicate add")
	}

	var se *apperr.ShopError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShopError, got %T", err)
	}
	if se.Status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", se.Status)
	}
	if len(se.Hints) == 0 || se.Hints[0].Method != http.MethodPut {
		t.Fatalf("expected PUT hint, got %+v", se.Hints)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Fatalf("cart changed on failed add: %+v", cart.Lines)
	}
}

func TestApplyEditReplacesQuantity(t *testing.T) {
	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})
	if err := applyEdit(&cart, "p1", 5); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("edit duplicated the line: %+v", cart.Lines)
	}
	if cart.Lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", cart.Lines[0].Quantity)
	}
}

func TestApplyEditZeroQuantityRemovesLine(t *testing.T) {
	cart := openPurchase(
		models.PurchaseLine{Product: "p1", Quantity: 2},
		models.PurchaseLine{Product: "p2", Quantity: 1},
	)
	if err := applyEdit(&cart, "p1", 0); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Product != "p2" {
		t.Fatalf("expected only p2 left, got %+v", cart.Lines)
	}
}

func TestApplyEditAbsentProductInserts(t *testing.T) {
	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})
	if err := applyEdit(&cart, "p2", 3); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", cart.Lines)
	}
	if i := cart.LineIndex("p2"); i < 0 || cart.Lines[i].Quantity != 3 {
		t.Fatalf("p2 not inserted correctly: %+v", cart.Lines)
	}
}

func TestApplyRemove(t *testing.T) {
	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})
	if err := applyRemove(&cart, "p1"); err != nil {
		t.Fatalf("applyRemove: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart.Lines)
	}

	err := applyRemove(&cart, "p1")
	var se *apperr.ShopError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("expected 404 on removing absent product, got %v", err)
	}
}

func TestPlanEdit(t *testing.T) {
	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})

	tests := []struct {
		name     string
		product  string
		quantity int
		want     lineOp
	}{
		{"present positive", "p1", 3, opSetQuantity},
		{"present zero", "p1", 0, opRemoveLine},
		{"present negative", "p1", -1, opRemoveLine},
		{"absent", "p2", 3, opAddLine},
		{"absent zero", "p2", 0, opAddLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := planEdit(&cart, tt.product, tt.quantity); got != tt.want {
				t.Fatalf("planEdit(%s, %d) = %v, want %v", tt.product, tt.quantity, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *int
		wantErr bool
	}{
		{"empty body", "", nil, false},
		{"empty object", "{}", nil, false},
		{"explicit quantity", `{"quantity":4}`, intp(4), false},
		{"explicit zero", `{"quantity":0}`, intp(0), false},
		{"malformed json", "{", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/api/products/p1/cart", strings.NewReader(tt.body))
			got, err := parseQuantity(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQuantity: %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Fatalf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}

// An edit that omits the quantity removes a line already in the cart; an
// add that omits it books one item.
func TestOmittedQuantityEditRemovesLine(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/api/products/p1/cart", strings.NewReader("{}"))
	quantity, err := parseQuantity(r)
	if err != nil {
		t.Fatalf("parseQuantity: %v", err)
	}

	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})
	if err := applyEdit(&cart, "p1", editQuantity(quantity)); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected the line removed, got %+v", cart.Lines)
	}
}

func TestOmittedQuantityEditInsertsAbsentLine(t *testing.T) {
	cart := openPurchase(models.PurchaseLine{Product: "p1", Quantity: 2})
	if err := applyEdit(&cart, "p2", editQuantity(nil)); err != nil {
		t.Fatalf("applyEdit: %v", err)
	}
	if i := cart.LineIndex("p2"); i < 0 || cart.Lines[i].Quantity != 1 {
		t.Fatalf("expected p2 inserted with quantity 1, got %+v", cart.Lines)
	}
}

func TestOmittedQuantityAddDefaultsToOne(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/products/p1/cart", nil)
	quantity, err := parseQuantity(r)
	if err != nil {
		t.Fatalf("parseQuantity: %v", err)
	}

	cart := openPurchase()
	if err := applyAdd(&cart, "p1", addQuantity(quantity)); err != nil {
		t.Fatalf("applyAdd: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 1 {
		t.Fatalf("expected one item of p1, got %+v", cart.Lines)
	}
}

func intp(v int) *int { return &v }

func TestSumLines(t *testing.T) {
	lines := []models.PopulatedLine{
		{Product: models.Product{ProductID: "p1", Price: 10}, Quantity: 2},
		{Product: models.Product{ProductID: "p2", Price: 5}, Quantity: 1},
	}
	if got := sumLines(lines); got != 25.00 {
		t.Fatalf("expected 25.00, got %v", got)
	}

	if got := sumLines(nil); got != 0 {
		t.Fatalf("expected 0 for empty cart, got %v", got)
	}

	cents := []models.PopulatedLine{
		{Product: models.Product{Price: 0.1}, Quantity: 3},
	}
	if got := sumLines(cents); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}
