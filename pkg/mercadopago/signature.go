package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature checks the x-signature header sent with webhook
// notifications. The header carries "ts=<unix>,v1=<hex hmac>" and the
// HMAC-SHA256 manifest is "id=<requestID>;ts=<ts>;body=<rawBody>" keyed
// with the webhook secret. Returns false, never an error: a missing
// secret, malformed header or digest mismatch all fail closed.
func VerifySignature(secret, xSignature, xRequestID string, rawBody []byte) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	if xSignature == "" || xRequestID == "" {
		return false
	}

	ts, v1, ok := parseSignatureHeader(xSignature)
	if !ok {
		return false
	}

	manifest := fmt.Sprintf("id=%s;ts=%s;body=%s", xRequestID, ts, rawBody)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(v1)))
}

func parseSignatureHeader(header string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return "", "", false
	}
	return ts, v1, true
}
