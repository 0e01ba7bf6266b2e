// Package github files issues through the GitHub REST API.
//
// The API-change monitor opens one issue per actionable documentation change.
// Requests go through the shared provider transport, so they are retried on
// 5xx and 429 and fail fast on 401, 403 and 404.
package github
