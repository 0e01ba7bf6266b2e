// Package retell adapts the Retell AI API to the providers contract. Retell is
// multi-tenant: every request runs against one workspace API key and every
// record it yields is tagged with that workspace.
package retell
