package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the account service
//	-t int      request timeout (in seconds)
//	-d string   session database path
//
// Only the flags above are picked out of args, so command words such as
// "login" pass through untouched.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-d"})

	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SessionDB, "d", cfg.SessionDB, "session database path")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}

// Commands returns args with every recognized flag and its value removed.
func Commands(args []string) []string {
	known := map[string]bool{}
	for _, a := range flagx.FilterArgs(args, []string{"-a", "-t", "-d"}) {
		known[a] = true
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		if known[a] {
			delete(known, a)
			continue
		}
		out = append(out, a)
	}
	return out
}
