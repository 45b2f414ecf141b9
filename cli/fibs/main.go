// Command fibs is a terminal client for FIBS-style backgammon servers.
//
// It connects to $FIBS_HOSTNAME:$FIBS_PORT (default fibs.com:4321), shows the
// message of the day and everything after the password prompt in a bordered
// panel, and sends each line typed in the input panel to the server.
//
// Controls:
//   - Enter: send the input line
//   - Shift+PageUp/PageDown: Scroll through the scrollback buffer
//   - Shift+Up/Down: Scroll one line at a time
//   - Shift+Home/End: Jump to top/bottom of the scrollback
//   - Ctrl-C or Ctrl-D: quit
//
// Logs are written to $FIBS_LOG_FILE (default $TMPDIR/fibsterm.log).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phroun/fibsterm"
	"github.com/phroun/fibsterm/cli"
	"github.com/pkg/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := fibsterm.LoadConfig()
	if err != nil {
		return fail(err)
	}

	log, logFile, err := fibsterm.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fail(err)
	}
	defer logFile.Close()

	// Ctrl-C arrives as a key in raw mode; signals cover kill and hangup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	log.WithField("host", fibsterm.SanitizeForLog(cfg.Hostname)).WithField("port", cfg.Port).Info("starting")

	client := cli.NewClient(cfg, cli.NewTerminal(), cli.WithLogger(log))
	if err := client.Run(ctx); err != nil {
		log.WithError(err).Error("exiting with error")
		return fail(err)
	}
	log.Info("bye")
	return 0
}

// fail prints err as "fibsterm: <kind>: <message>" and returns the exit status
func fail(err error) int {
	msg := err.Error()
	var e *fibsterm.Error
	if errors.As(err, &e) && e.Err != nil {
		msg = e.Source + ": " + e.Err.Error()
	}
	fmt.Fprintf(os.Stderr, "fibsterm: %s: %s\n", fibsterm.KindOf(err), msg)
	return 1
}
