package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Headers carried by every run callback.
const (
	SignatureHeader = "X-Run-Signature"
	RunIDHeader     = "X-Run-Id"
)

var (
	ErrBadSignature   = errors.New("webhooks: signature mismatch")
	ErrStaleSignature = errors.New("webhooks: signature outside tolerance")
)

// SignDelivery returns the SignatureHeader value for a callback body:
// "t=<unix>,v1=<hex>", where v1 is HMAC-SHA256 over "<unix>.<runID>.<body>".
func SignDelivery(secret, runID string, at time.Time, body []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + hex.EncodeToString(deliveryMAC(secret, ts, runID, body))
}

// VerifyDelivery checks a SignatureHeader value. A zero tolerance skips the
// timestamp window check.
func VerifyDelivery(secret, runID, header string, body []byte, now time.Time, tolerance time.Duration) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(got, deliveryMAC(secret, ts, runID, body)) {
		return ErrBadSignature
	}
	if tolerance > 0 {
		if d := now.Sub(time.Unix(unix, 0)); d > tolerance || d < -tolerance {
			return ErrStaleSignature
		}
	}
	return nil
}

func deliveryMAC(secret, ts, runID string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write([]byte(runID))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return mac.Sum(nil)
}
