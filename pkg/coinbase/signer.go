package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"nakula/pkg/core"
)

// Sign computes the signature the exchange expects on authenticated requests:
// the base64 encoding of an HMAC-SHA256 over timestamp + method + requestPath
// + body, keyed with the base64-decoded API secret. The body must be the
// exact bytes that will be transmitted; an empty body contributes nothing to
// the prehash. Sign is pure: identical inputs always produce identical
// output.
func Sign(secret, timestamp, method, requestPath string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: secret is not valid base64", core.ErrInvalidCredentials)
	}

	h := hmac.New(sha256.New, key)
	h.Write([]byte(timestamp))
	h.Write([]byte(method))
	h.Write([]byte(requestPath))
	h.Write(body)

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
