// Package contacts maintains telco.contacts: per-number call counts from the
// call tables and the classification roll-up with sticky DNC.
package contacts
