package device

import (
	"net/http"

	"votebooth/pkg/requestcontext"
)

// Config holds configuration for the Device middleware.
type Config struct {
	// FingerprintFn computes a device fingerprint from the User-Agent string.
	FingerprintFn func(userAgent string) string
}

// Device pre-computes the device fingerprint from the User-Agent already placed
// in context by the metadata middleware.
func Device(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if cfg != nil && cfg.FingerprintFn != nil {
				if userAgent := requestcontext.UserAgent(ctx); userAgent != "" {
					ctx = requestcontext.WithDeviceFingerprint(ctx, cfg.FingerprintFn(userAgent))
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
