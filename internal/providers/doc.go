// Package providers defines the uniform contract every telephony provider
// adapter implements, the record shapes they produce, and the shared retrying
// HTTP transport.
//
// Adapters live in subpackages (zadarma, telnyx, retell). They are read-only
// clients: nothing here writes back to a provider.
package providers
