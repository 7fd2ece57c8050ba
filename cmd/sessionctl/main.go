package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/identity/oidcprovider"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/jrsteele09/go-auth-session/sessions/platform"
	"github.com/rs/zerolog/log"
)

const usage = `usage: sessionctl <command> [flags]

commands:
  status                    print the restored session state
  whoami                    print the signed in user as JSON
  login -email E [-password P]
                            sign in; the password is read from stdin when omitted
  logout                    sign out and forget the stored session
  reload                    re-read the user from the identity provider
  watch                     print every state change until interrupted
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		fmt.Fprintln(os.Stderr, auth.Message(err))
		os.Exit(1)
	}
}

// app bundles everything a command needs.
type app struct {
	controller *auth.SessionController
	provider   *oidcprovider.Provider
}

func run(command string, args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	// A missing .env file is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(config.GetEnv(config.ConfigFileVar, ""))
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())
	displayAppname(os.Stderr, command, cfg.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := platform.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Err(err).Msg("Failed to close session store")
		}
	}()

	provider, err := oidcprovider.New(ctx, oidcprovider.ConfigFrom(cfg), oidcprovider.WithLogger(logger))
	if err != nil {
		return err
	}
	defer provider.Close()

	controller, err := auth.NewSessionController(
		auth.Deps{Store: store, Provider: provider},
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer controller.Close()

	if err := controller.Start(ctx); err != nil {
		return err
	}

	a := &app{controller: controller, provider: provider}
	switch command {
	case "status":
		return a.status(os.Stdout)
	case "whoami":
		return a.whoami(os.Stdout)
	case "login":
		return a.login(ctx, args, os.Stdin, os.Stdout)
	case "logout":
		a.controller.SignOut(ctx)
		fmt.Fprintln(os.Stdout, "signed out")
		return nil
	case "reload":
		return a.reload(ctx, os.Stdout)
	case "watch":
		return a.watch(ctx, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) status(w io.Writer) error {
	state := a.controller.State()
	if state.User == nil {
		_, err := fmt.Fprintln(w, state.Status())
		return err
	}
	_, err := fmt.Fprintf(w, "%s as %s <%s>\n", state.Status(), state.User.ID, state.User.Email)
	return err
}

func (a *app) whoami(w io.Writer) error {
	user := a.controller.CurrentUser()
	if user == nil {
		return errors.New("not signed in")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(user)
}

func (a *app) login(ctx context.Context, args []string, in io.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	if *password == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	if err := a.controller.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	return a.status(w)
}

func (a *app) reload(ctx context.Context, w io.Writer) error {
	session, err := a.provider.ReloadUser(ctx)
	if err != nil {
		return err
	}

	// USER_UPDATED is reconciled asynchronously; wait until it has been applied.
	states, unsubscribe := a.controller.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-states:
			if !ok {
				return errors.New("session controller closed")
			}
			if state.User != nil && state.User.Name == session.User.Name && state.User.Email == session.User.Email {
				return a.whoami(w)
			}
		}
	}
}

func (a *app) watch(ctx context.Context, w io.Writer) error {
	states, unsubscribe := a.controller.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-states:
			if !ok {
				return nil
			}
			line := state.Status().String()
			if state.User != nil {
				line += " " + state.User.ID
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
}

// displayAppname prints the banner for the long-running watch command only.
func displayAppname(w io.Writer, command, appname string) {
	if command != "watch" {
		return
	}
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
