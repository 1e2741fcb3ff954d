// Package authclient is an HTTP client for the failsight /auth endpoint.
//
// A Controller keeps a cached view of the current user that is refreshed by
// Check and updated after every Login and Logout. Button derives the
// login/logout toggle state from that cache. The CLI persists the session
// cookie between invocations with SaveCookies and LoadCookies.
package authclient
