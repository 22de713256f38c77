// Package cli provides the interactive TaxBox command-line client.
//
// It wires configuration, the local cache, the transport client, the
// session and dashboard controllers, and a REPL on top of them. Typical
// flow: sign in (online, or offline against the cached credential), review
// tax returns and their totals, upload supporting documents and download
// returns as JSON.
//
// Notifications are printed as they arrive and expire on their own; the
// "notifications" command lists the ones still visible.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
