package auth

import "time"

// SessionStillValid reports whether a token issued at issuedAt is still
// trustworthy given the account's last password change. A change made
// after issuance invalidates the token; this is the only revocation
// mechanism — there is no server-side blacklist.
//
// The comparison is strict greater-than on Unix seconds: a change in
// the same second as issuance does NOT invalidate. passwordChangedAt
// nil means the password was never changed.
func SessionStillValid(issuedAt time.Time, passwordChangedAt *time.Time) bool {
	if passwordChangedAt == nil {
		return true
	}
	return issuedAt.Unix() >= passwordChangedAt.Unix()
}
