package billing

import (
	"crypto/rand"
	"strings"
)

const (
	couponCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponCodeLength   = 12
)

// newCouponCode draws a code uniformly from couponCodeAlphabet.  Bytes above
// the largest multiple of the alphabet size are discarded to avoid bias.
func newCouponCode() (string, error) {
	const limit = 256 - 256%len(couponCodeAlphabet)
	out := make([]byte, 0, couponCodeLength)
	buf := make([]byte, couponCodeLength*2)
	for len(out) < couponCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, couponCodeAlphabet[int(b)%len(couponCodeAlphabet)])
			if len(out) == couponCodeLength {
				break
			}
		}
	}
	return string(out), nil
}

// NormalizeCode trims and upper-cases a coupon code typed at a kiosk.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
