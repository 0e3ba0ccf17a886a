package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL needs. *App satisfies it.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Passwd(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads one command per line and dispatches it. The loop ends on EOF
// or "exit"/"quit".
//
//	Not logged in: help, register, login, exit
//	Logged in:     help, whoami, refresh, passwd, logout, exit
//
// Handlers print their own errors, so their return values are dropped here.
func runREPL(ctx context.Context, a execIface, statusFn func(context.Context) string, reader *bufio.Reader) {
	cmds := commands(a)
	for {
		printlnFn(fmt.Sprintf("authctl %s> ", statusFn(ctx)))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn("Available commands: whoami, refresh, passwd, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			fn, ok := cmds[cmd]
			if !ok {
				printlnFn("Unknown command:", cmd)
				continue
			}
			_ = fn(ctx)
		}
	}
}
