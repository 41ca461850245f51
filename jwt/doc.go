// Package jwt signs and verifies the engine's bearer tokens on top of
// github.com/golang-jwt/jwt/v5.
//
// Three token kinds exist: access, refresh, and the transient MFA ticket.
// Access and refresh tokens are signed with two independent HMAC secrets so
// possessing one kind's signing material cannot forge the other. Every token
// carries a kind claim that verification enforces, which is what keeps a
// transient ticket from ever passing as an access token.
package jwt
