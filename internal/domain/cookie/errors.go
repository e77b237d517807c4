package cookie

import "errors"

var (
	// ErrNoCookie is returned when no auth cookie accompanies the request.
	// It marks a plainly unauthenticated request, not a security rejection.
	ErrNoCookie = errors.New("no auth cookie present")

	// ErrInsecureTransport is returned when issuance is attempted over plaintext
	ErrInsecureTransport = errors.New("refusing to issue credentials over insecure transport")

	// ErrMalformedCookie is returned when the cookie does not parse at all
	ErrMalformedCookie = errors.New("malformed cookie")

	// ErrSignatureTamper is returned when the detached signature does not verify
	ErrSignatureTamper = errors.New("signature tampering detected")

	// ErrDecryptFailed is returned when the AEAD check fails
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrExpiredCookie is returned when the payload expiry has passed
	ErrExpiredCookie = errors.New("expired cookie")

	// ErrDeviceMismatch is returned when the recomputed fingerprint disagrees
	ErrDeviceMismatch = errors.New("device mismatch")

	// ErrIPMismatch is returned when strict IP checking is on and the IP hash disagrees
	ErrIPMismatch = errors.New("ip mismatch")

	// ErrTokenRevoked is returned when no active persisted row backs the cookie
	ErrTokenRevoked = errors.New("replay or revoked token")
)

// IsRejection reports whether err is a per-request validation rejection,
// as opposed to an infrastructure failure. Rejections degrade to the
// logged-out state and are never surfaced to the end user individually.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedCookie),
		errors.Is(err, ErrSignatureTamper),
		errors.Is(err, ErrDecryptFailed),
		errors.Is(err, ErrExpiredCookie),
		errors.Is(err, ErrDeviceMismatch),
		errors.Is(err, ErrIPMismatch),
		errors.Is(err, ErrTokenRevoked):
		return true
	}
	return false
}
