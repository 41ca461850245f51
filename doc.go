// Package secureauth is a credential and session-authentication engine:
// password login with brute-force lockout, a stateful access/refresh token
// lifecycle with server-side revocation, and a multi-method second-factor
// state machine (authenticator-app TOTP, email codes, SMS codes) with
// single-use backup-code fallback.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// secureauth is the public surface. It exposes [Engine], [Builder],
// [Config], and value types (LoginResult, AccountInfo, TOTPSetup). Signing
// lives in jwt/, password hashing in password/, the credential record and
// its Redis store in account/, and the token ledger in ledger/.
//
// # What this package must NOT do
//
//   - Route HTTP, validate request shapes, or render anything. Callers own
//     the transport; the engine owns the state transitions.
//   - Send email or SMS itself. Outbound dispatch goes through the
//     caller-supplied [Notifier]; a dispatch failure rolls back the
//     pending-code state it would have announced.
//   - Read configuration from the environment. Everything arrives through
//     [Config] at build time.
//
// # Concurrency contract
//
// Per-account mutable state (lockout counters, pending codes, backup-code
// used flags) is updated through a serialized compare-and-swap cycle keyed
// by account id: two simultaneous failed logins cannot under-count toward
// the lock threshold, and two simultaneous submissions of the same backup
// code cannot both succeed. Ledger rows transition independently and need
// no cross-row coordination.
package secureauth
