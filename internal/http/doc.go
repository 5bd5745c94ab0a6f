// Package http provides HTTP handlers and middleware for the calendar API.
//
// The router exposes the following endpoints:
//   - POST /users: registers an account. Body: {"email","password"}. Open.
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the current session token extracted
//     from the Authorization header or session cookie. Returns 204 and
//     clears the cookie.
//   - GET /events, POST /events, GET /events/{id}, PUT /events/{id},
//     DELETE /events/{id}: event management endpoints exchanging the
//     `eventDTO` payload defined in event_handler.go. All event routes
//     require a valid session; non-owners receive 404 for resources they
//     cannot see.
//   - POST /events/{id}/invites: mails the event's iCalendar invitation to
//     each attendee and reports the per-recipient outcome.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
