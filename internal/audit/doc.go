// Package audit records who did what in the portal.
//
// Entries are append-only. The API layer writes them asynchronously through a
// buffered channel; administrators read them back with List.
package audit
