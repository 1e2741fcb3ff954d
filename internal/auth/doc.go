// Package auth implements the session login endpoint.
//
// The Service answers three actions against an explicit session:
//   - login: exact username lookup and bcrypt comparison; on success the
//     session receives user_id and username
//   - logout: destroys the session unconditionally
//   - check: reports the identity held by the session, if any
//
// Responses share one JSON shape, {success, username?, message?}. When the
// credential store is unreachable the service fails closed: login is refused
// with a generic message and check reports no identity. The underlying error
// is only logged.
package auth
