// Package server wires the web front-end together: the auth endpoint, the
// prediction form, the results pages and a health check.
//
// A submitted form is turned into a feature vector and sent to the
// prediction API. The raw response goes into the session mailbox and the
// browser is redirected to the results page, which renders it. Each browser
// session may have only one prediction in flight at a time.
package server
