package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	focus()
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	ChangeCredentials(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Reset(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the finkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Every command except help and exit counts as
// user activity, so the session is revalidated before it runs. The loop exits
// on EOF, when ctx is cancelled or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help           show available commands
//	  - login          authenticate
//	  - status         connectivity and session state
//	  - reset          remove everything stored on this device
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - whoami         show the current user and session expiry
//	  - passwd         change username and/or password
//	  - sync           reconcile the local profile with the server
//	  - logout         end the session
//
// Errors returned by command handlers are printed and otherwise ignored.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("fk> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, passwd, sync, status, logout, reset, exit")
			} else {
				printlnFn("Available commands: login, status, reset, exit")
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		a.focus()

		var cmdErr error
		switch cmd {
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "passwd":
			cmdErr = a.ChangeCredentials(ctx)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "reset":
			cmdErr = a.Reset(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
