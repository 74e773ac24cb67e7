// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
//
//	voterID := requestcontext.VoterID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithDeviceFingerprint(ctx, "fingerprint-hash")
package requestcontext

import (
	"context"
	"time"

	id "votebooth/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	voterIDKey           struct{}
	credentialKey        struct{}
	deviceFingerprintKey struct{}
	clientIPKey          struct{}
	userAgentKey         struct{}
	requestIDKey         struct{}
	requestTimeKey       struct{}
	staffRoleKey         struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyVoterID           = voterIDKey{}
	ContextKeyCredential        = credentialKey{}
	ContextKeyDeviceFingerprint = deviceFingerprintKey{}
	ContextKeyClientIP          = clientIPKey{}
	ContextKeyUserAgent         = userAgentKey{}
	ContextKeyRequestID         = requestIDKey{}
	ContextKeyRequestTime       = requestTimeKey{}
	ContextKeyStaffRole         = staffRoleKey{}
)

// -----------------------------------------------------------------------------
// Credential context
// -----------------------------------------------------------------------------

// Credential describes the stage credential that authenticated the request.
type Credential struct {
	ID        string
	Purpose   string
	ExpiresAt time.Time
}

// VoterID retrieves the voter ID taken from a verified credential subject.
// Returns the zero value (nil UUID) if not set.
func VoterID(ctx context.Context) id.VoterID {
	if voterID, ok := ctx.Value(ContextKeyVoterID).(id.VoterID); ok {
		return voterID
	}
	return id.VoterID{}
}

// WithVoterID injects a voter ID into the context.
func WithVoterID(ctx context.Context, voterID id.VoterID) context.Context {
	return context.WithValue(ctx, ContextKeyVoterID, voterID)
}

// CredentialInfo retrieves the presented credential's metadata.
func CredentialInfo(ctx context.Context) (Credential, bool) {
	c, ok := ctx.Value(ContextKeyCredential).(Credential)
	return c, ok
}

// WithCredential injects credential metadata into the context.
func WithCredential(ctx context.Context, c Credential) context.Context {
	return context.WithValue(ctx, ContextKeyCredential, c)
}

// StaffRole retrieves the staff role granted by the staff token middleware.
func StaffRole(ctx context.Context) string {
	if role, ok := ctx.Value(ContextKeyStaffRole).(string); ok {
		return role
	}
	return ""
}

// WithStaffRole injects a staff role into the context.
func WithStaffRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyStaffRole, role)
}

// -----------------------------------------------------------------------------
// Device and client metadata
// -----------------------------------------------------------------------------

// DeviceFingerprint retrieves the pre-computed device fingerprint from the context.
func DeviceFingerprint(ctx context.Context) string {
	if fp, ok := ctx.Value(ContextKeyDeviceFingerprint).(string); ok {
		return fp
	}
	return ""
}

// WithDeviceFingerprint injects a device fingerprint into a context.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceFingerprint, fingerprint)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
