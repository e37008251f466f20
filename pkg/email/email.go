// Package email validates applicant addresses at the submission boundary.
package email

import "net/mail"

// Valid reports whether s is a plausible RFC 5322 address on its own, with
// no display name or angle brackets.
func Valid(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
