// Package render paints the HTML pages of the web front-end from result
// data kept in the session mailbox.
package render
