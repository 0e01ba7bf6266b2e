package zadarma

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/url"
)

// Sign returns the Zadarma signature for method (the API path, for example
// "/v1/statistics/pbx/") and params.
func Sign(secret, method string, params url.Values) string {
	query := params.Encode()
	digest := md5.Sum([]byte(query))
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(method + query + hex.EncodeToString(digest[:])))
	return base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(mac.Sum(nil))))
}

// AuthorizationHeader returns the header value for a signed request.
func AuthorizationHeader(key, secret, method string, params url.Values) string {
	return key + ":" + Sign(secret, method, params)
}
