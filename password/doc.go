// Package password hashes and verifies account passwords with argon2id.
//
// Digests are encoded in PHC string format so parameters travel with the
// hash; verification derives the comparison key from the stored parameters
// and compares in constant time. The engine treats this package as a black
// box: hash in, digest out, verify yes/no.
package password
