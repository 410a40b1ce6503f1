package purchases

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"vitrine/apperr"
	"vitrine/globals"
	"vitrine/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var receiptSecret = []byte(globals.EnvOr("RECEIPT_SECRET", "change_me_in_production"))

// receiptPayload builds the signed verification string embedded in the QR:
// purchaseid|buyer|timestamp|signature.
func receiptPayload(purchaseID, buyer string) string {
	data := fmt.Sprintf("%s|%s|%d", purchaseID, buyer, time.Now().Unix())
	h := hmac.New(sha256.New, receiptSecret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// PrintReceipt handles GET /api/purchases/:id/receipt. Only paid purchases
// have a receipt.
func PrintReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	purchase, err := findOwn(r, ps.ByName("id"))
	if err != nil {
		utils.SendError(w, err)
		return
	}
	if !purchase.Paid {
		utils.SendError(w, apperr.New(http.StatusBadRequest, "purchase is not paid yet").WithHint(apperr.Hint{
			Functionality: "pay this purchase",
			Method:        http.MethodPost,
			URL:           "/api/purchases/" + purchase.PurchaseID + "/payment",
		}))
		return
	}

	populated, err := populate(r.Context(), purchase)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	qrPNG, err := qrcode.Encode(receiptPayload(purchase.PurchaseID, purchase.Buyer), qrcode.Medium, 256)
	if err != nil {
		utils.SendError(w, err)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Purchase Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Purchase ID: %s", purchase.PurchaseID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Date: %s", purchase.UpdatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(12)

	total := 0.0
	for _, line := range populated.Lines {
		name := line.Product.Name
		if name == "" {
			name = line.Product.ProductID
		}
		lineTotal := utils.Round2(float64(line.Quantity) * line.Product.Price)
		total += lineTotal
		pdf.Cell(0, 8, fmt.Sprintf("%dx %s - %.2f", line.Quantity, name, lineTotal))
		pdf.Ln(8)
	}
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Total: %.2f", utils.Round2(total)))

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.SendError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+purchase.PurchaseID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
