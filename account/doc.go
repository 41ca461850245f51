// Package account owns the persistent credential record: identity, password
// digest, verification state, lockout counters, and the full MFA
// configuration including pending one-time-code state and backup codes.
//
// Records are stored in Redis as versioned binary blobs. All mutation goes
// through [Store.Update], which runs a WATCH-based compare-and-swap loop so
// concurrent read-modify-write cycles against the same account are
// serialized without any cross-account locking.
package account
