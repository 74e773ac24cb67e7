// Package admin guards the staff queue desk and administrator routes with
// static bearer tokens whose bcrypt hashes come from configuration.
package admin

import (
	"log/slog"
	"net/http"

	"votebooth/pkg/requestcontext"
	"votebooth/pkg/secrets"
)

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"

	HeaderStaffToken = "X-Staff-Token"
	HeaderAdminToken = "X-Admin-Token"
)

// Credential binds a role to the header it is presented in and its bcrypt hash.
// A credential with an empty hash is disabled.
type Credential struct {
	Role   string
	Header string
	Hash   string
}

// StaffCredential and AdminCredential build the two standard credentials.
func StaffCredential(hash string) Credential {
	return Credential{Role: RoleStaff, Header: HeaderStaffToken, Hash: hash}
}

func AdminCredential(hash string) Credential {
	return Credential{Role: RoleAdmin, Header: HeaderAdminToken, Hash: hash}
}

// RequireToken admits a request presenting any of the accepted credentials and
// records the matching role in context. With nothing configured every request
// is rejected.
func RequireToken(logger *slog.Logger, accepted ...Credential) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, c := range accepted {
				if c.Hash == "" {
					continue
				}
				token := r.Header.Get(c.Header)
				if token == "" {
					continue
				}
				if err := secrets.Verify(token, c.Hash); err == nil {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithStaffRole(ctx, c.Role)))
					return
				}
			}

			logger.WarnContext(ctx, "staff token mismatch",
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"staff token required"}`))
		})
	}
}
