// Package payment verifies callbacks from the payment gateway.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/gymcrm/gymcrm-backend/internal/domain"
)

// ErrVerifierNotConfigured is returned when a gateway payment arrives but no secret is set
var ErrVerifierNotConfigured = errors.New("razorpay key secret is not configured")

// RazorpayVerifier checks the checkout signature Razorpay returns to the client:
// hex(HMAC-SHA256(key_secret, order_id + "|" + payment_id)).
type RazorpayVerifier struct {
	keySecret []byte
}

// NewRazorpayVerifier creates a verifier. An empty secret yields a verifier that rejects everything.
func NewRazorpayVerifier(keySecret string) *RazorpayVerifier {
	return &RazorpayVerifier{keySecret: []byte(keySecret)}
}

// Verify returns nil when signature matches the order and payment ids
func (v *RazorpayVerifier) Verify(orderID, paymentID, signature string) error {
	if len(v.keySecret) == 0 {
		return ErrVerifierNotConfigured
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return domain.ErrPaymentSignatureInvalid
	}

	expected := Sign(v.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrPaymentSignatureInvalid
	}
	return nil
}

// Sign computes the signature for an order and payment pair
func Sign(keySecret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, keySecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
