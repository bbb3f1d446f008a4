package reward

import (
	"github.com/skip2/go-qrcode"

	"questrail.io/questrail/pkg/errors"
)

// CodeQR renders the promo code as a PNG QR image, sized for chat
// preview.
func CodeQR(code string) ([]byte, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 512)
	return png, errors.WrapAndReport(err, "encode promo code qr")
}
