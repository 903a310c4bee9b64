package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Add(ctx context.Context) error
	List(ctx context.Context, filter string) error
	Show(ctx context.Context) error
	Delete(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Sync(ctx context.Context) error
	Dashboard(ctx context.Context) error
	Export(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the ReceiptKeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//   - help             - show available commands
//   - add              - add a receipt or warranty (interactive)
//   - list [filter]    - list items; filter: receipts, warranties, expiring_soon, expired, category:<name>
//   - show             - show a single item (interactive ID prompt)
//   - delete           - delete an item (interactive ID prompt)
//   - search <query>   - search by title, company, category or notes
//   - sync             - full reconciliation with the remote store
//   - dashboard        - warranty statistics
//   - export           - write all items to a CSV file
//   - exit | quit      - leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("rk> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: add, (l)ist [filter], show, delete, search <query>, sync, dashboard, export, exit")

		case "add":
			_ = a.Add(ctx)

		case "l", "list":
			filter := ""
			if len(args) > 0 {
				filter = args[0]
			}
			_ = a.List(ctx, filter)

		case "show":
			_ = a.Show(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "search":
			if len(args) == 0 {
				printlnFn("Usage: search <query>")
				continue
			}
			_ = a.Search(ctx, strings.Join(args, " "))

		case "sync":
			_ = a.Sync(ctx)

		case "dashboard":
			_ = a.Dashboard(ctx)

		case "export":
			_ = a.Export(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
