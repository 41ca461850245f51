// Package internal holds unexported helpers shared by the secureauth
// packages: CSPRNG code and token generation plus the salted digest scheme
// used for pending one-time codes. Nothing here is part of the public API.
package internal
