//go:build !unix

package config

// RestrictUmask is a no-op on platforms without umask.
func RestrictUmask() int {
	return 0
}
