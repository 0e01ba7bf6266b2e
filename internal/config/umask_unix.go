//go:build unix

package config

import "golang.org/x/sys/unix"

// RestrictUmask makes files created by this process private to its user and
// returns the previous mask.
func RestrictUmask() int {
	return unix.Umask(0o077)
}
