// Command mealmind is a terminal client for the MealMind API: sign in, view
// and regenerate daily plans, check in, and log weigh-ins.
//
// Usage: mealmind [-api URL] [-v] <command> [flags]
//
// MEALMIND_API_URL and MEALMIND_TOKEN supply the base URL and access token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"lg/mealmind-go-api/internal/dayplan"
	"lg/mealmind-go-api/internal/logger"
	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/planclient"
)

const usage = `usage: mealmind [-api URL] [-v] <command> [flags]

commands:
  signup      -email -username -password
  login       -email -password
  me
  profile     show | setup [flags] | update [flags] | reset
  today
  day         [-create] YYYY-MM-DD
  regen       [-date YYYY-MM-DD] breakfast|lunch|dinner|activities
  checkin     [-date YYYY-MM-DD] [-food] [-activity]
  month-ahead
  month       YEAR MONTH
  history
  weight      [-date YYYY-MM-DD] KG | log
  progress    [-days N]
`

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "mealmind:", err)
		if errors.Is(err, mealplan.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "session expired; run `mealmind login` again")
		}
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	client  *planclient.Client
	planner *dayplan.Planner
	out     io.Writer
}

func run(ctx context.Context, args []string, out io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("mealmind", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }
	apiURL := fs.String("api", envOr(getenv, "MEALMIND_API_URL", "http://localhost:3000/api"), "API base URL")
	verbose := fs.Bool("v", false, "debug logging to stderr")
	tz := fs.String("tz", getenv("TIMEZONE"), "timezone for \"today\" (default local)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	log := logger.Nop()
	if *verbose {
		l, err := logger.New("dev")
		if err != nil {
			return err
		}
		log = l
		defer log.Sync()
	}
	loc := time.Local
	if *tz != "" {
		l, err := time.LoadLocation(*tz)
		if err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}

	session := planclient.NewSession(getenv("MEALMIND_TOKEN"))
	client := planclient.New(*apiURL, session, planclient.WithLogger(log))
	planner := dayplan.New(client, dayplan.WithLocation(loc), dayplan.WithLogger(log))
	session.OnLogout(planner.Reset)

	a := &app{client: client, planner: planner, out: out}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	handler, ok := commands[cmd]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	if cmd != "signup" && cmd != "login" && !session.Authenticated() {
		return fmt.Errorf("%w: set MEALMIND_TOKEN or run `mealmind login`", mealplan.ErrUnauthorized)
	}
	return handler(ctx, a, rest)
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
