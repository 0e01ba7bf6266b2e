// Package phone canonicalises free-form phone numbers to the Australian
// `61XXXXXXXXX` form used as the warehouse's cross-provider contact key.
//
// The same rules exist server-side as telco.normalize_phone so SQL
// aggregations and Go callers agree on identity.
package phone
