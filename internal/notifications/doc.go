// Package notifications posts JSON notifications to an outbound webhook.
//
// The webhook receives {to, subject, body_html, source, timestamp,
// change_count, action_required}; whatever sits behind it (an email relay,
// n8n, a chat bridge) handles delivery. With no webhook URL configured the
// service is a no-op.
package notifications
