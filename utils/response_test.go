package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vitrine/apperr"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return body
}

func TestSendDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	SendData(rec, http.StatusCreated, M{"id": "p1"}, M{"last_page": 3})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" {
		t.Fatalf("expected success status, got %v", body["status"])
	}
	if body["data"] == nil || body["metadata"] == nil {
		t.Fatalf("missing data or metadata: %v", body)
	}
}

func TestSendErrorShopError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperr.New(http.StatusConflict, "product is already in the cart").WithHint(apperr.Hint{
		Method: http.MethodPut,
		URL:    "/api/products/p1/cart",
	})
	SendError(rec, err)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "failed" {
		t.Fatalf("expected failed status, got %v", body["status"])
	}
	errBody := body["error"].(map[string]interface{})
	if errBody["message"] != "product is already in the cart" {
		t.Fatalf("unexpected message %v", errBody["message"])
	}
	if errBody["additional_info"] == nil {
		t.Fatal("expected additional_info hints")
	}
}

func TestSendErrorValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, apperr.NewValidation().Add("rating", "rating must be between 1 and 10"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]interface{})
	fields := errBody["fields"].(map[string]interface{})
	if fields["rating"] == nil {
		t.Fatalf("expected rating field message, got %v", fields)
	}
}

func TestSendErrorGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, http.ErrBodyNotAllowed)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]interface{})
	if errBody["message"] == http.ErrBodyNotAllowed.Error() {
		t.Fatal("internal error detail leaked to the client")
	}
}
