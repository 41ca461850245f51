// Package ledger records every issued access and refresh token and answers
// revocation queries. The signature inside a token is self-contained, but
// only tokens present in the ledger are honored as session carriers; that
// is what makes server-side instant revocation possible despite
// stateless-looking bearer tokens.
//
// Rows are independent: revocation is a monotonic false-to-true flip per
// row, bulk revocation is best-effort across rows, and purge only touches
// rows whose expiry plus retention window has passed. No cross-row locking
// exists or is needed.
package ledger
