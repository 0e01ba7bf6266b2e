// Package llm is a small client for the Anthropic Messages API.
//
// The API-change monitor is its only caller: it sends a system prompt and a
// user prompt and expects a single JSON object back. CompleteJSON returns
// that object as text; DecodeJSON tolerates code fences and prose around it.
//
// Requests go through providers.Transport, the same retrying transport the
// provider adapters use, with a shorter policy (four retries, base 1s, max
// 10s). A reply with no text is re-sent up to three times before it is
// reported as services.ErrData.
package llm
