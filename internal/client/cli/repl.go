package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taxbox/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Refresh(ctx context.Context) error
	Stats(ctx context.Context) error
	Upload(ctx context.Context, paths []string) error
	Download(ctx context.Context, id string) error
	Notifications(ctx context.Context) error
	Dismiss(ctx context.Context, id string) error
	Filed(ctx context.Context) error
	SetView(ctx context.Context, mode string) error
}

// runREPL starts a simple read–eval–print loop for the TaxBox CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help             show available commands
//	  - register         create an account
//	  - login            authenticate
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - (l)ist           list tax returns
//	  - refresh          fetch tax returns again
//	  - stats            totals across all returns
//	  - upload <file>..  upload supporting documents
//	  - download <id>    save a return as JSON
//	  - notifications    show visible notifications
//	  - dismiss <n>      dismiss notification n
//	  - filed            report that the tax form was submitted
//	  - mode <view>      dashboard, tax-form or upload-form
//	  - logout           log out
//
// Errors returned by command handlers are ignored here; handlers print or
// notify the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("%s %s> ", common.AppName, statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, refresh, stats, upload, download, notifications, dismiss, filed, mode, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}
			continue
		}

		if !a.isLoggedIn() {
			switch cmd {
			case "register":
				_ = a.Register(ctx)
			case "login":
				_ = a.Login(ctx)
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "l", "list":
			_ = a.List(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "stats":
			_ = a.Stats(ctx)
		case "upload":
			_ = a.Upload(ctx, args)
		case "download":
			_ = a.Download(ctx, first(args))
		case "notifications":
			_ = a.Notifications(ctx)
		case "dismiss":
			_ = a.Dismiss(ctx, first(args))
		case "filed":
			_ = a.Filed(ctx)
		case "mode":
			_ = a.SetView(ctx, first(args))
		case "logout":
			_ = a.Logout(ctx)
		case "register", "login":
			printlnFn("Already signed in, log out first")
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
