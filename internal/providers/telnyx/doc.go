// Package telnyx adapts the Telnyx v2 API to the providers contract: call and
// message detail records, recordings, routing resources and the account balance.
package telnyx
