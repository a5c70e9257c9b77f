package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-hr-client/internal/config"
	apperrors "github.com/jrsteele09/go-hr-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "could not load .env: %s\n", err)
	}

	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.New(), cmd, flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", apperrors.UserMessage(err, err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, c config.Config, cmd command, args []string) error {
	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	runCmd := cmd.setup(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.needsSession && !a.session.State().IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}
	return runCmd(ctx, a)
}

func usage() {
	displayAppname(config.New().GetAppName())
	fmt.Fprintf(os.Stderr, "usage: hrclient [-v] <command> [flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-20s %s\n", name, commands[name].summary)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
