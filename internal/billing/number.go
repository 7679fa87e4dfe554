package billing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewBillNumber builds a bill identifier of the form
// BILL-YYYYMMDD-HHMMSS-XXXXXX, where the suffix is six uppercase hex
// characters from crypto/rand. The suffix alone is only probabilistically
// unique; the invoices table enforces real uniqueness and the caller
// retries on collision.
func NewBillNumber(now time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("billing: random suffix: %w", err)
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))
	return fmt.Sprintf("BILL-%s-%s", now.Format("20060102-150405"), suffix), nil
}
