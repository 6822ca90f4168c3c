package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/AdamBeresnev/op-tournament/internal/httputil"
)

const GatewaySecretHeader = "X-Gateway-Secret"

// RequireGatewaySecret only lets through requests carrying the secret shared
// with the payment gateway. An empty secret rejects everything.
func RequireGatewaySecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(GatewaySecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httputil.Unauthorized(w, "gateway authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
