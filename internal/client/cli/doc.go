// Package cli provides the interactive ReceiptKeeper command-line client.
//
// It wires configuration, local storage, the remote document store, the blob
// store and the sync engine into an interactive REPL that supports offline
// operation. Typical flow: open the local database, start a background
// connectivity watcher, re-arm warranty reminders, and execute user commands.
//
// Key features:
//   - Add / list / show / delete receipts and warranties
//   - Search and filtered list views
//   - Dashboard with warranty statistics
//   - CSV export
//   - Full bidirectional sync with the remote store
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
