package authenticator

import "time"

type TokenEngine interface {
	// Generate signs obj into a token which expires after the given duration.
	Generate(expiration time.Duration, obj any) (string, error)

	// Verify checks the token signature and expiration, then unmarshals the
	// signed object into out.
	Verify(token string, out any) error
}
