// Package session implements a server-side gorilla/sessions store on top
// of the failsight database.
//
// Each browser session is identified by a random UUID carried in a cookie
// signed with securecookie. Session values are gob-encoded and saved in the
// sessions table with an expiry; rows past their expiry are treated as
// absent and removed by RunCleanup.
package session
