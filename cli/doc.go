// Package cli provides the terminal front end of fibsterm.
//
// It takes over the host terminal, draws the server's output in a bordered
// content panel with a one-line input panel below it, and relays typed lines to
// the server. The protocol logic lives in the fibsterm package; this package
// wires it to the terminal and the socket.
//
// # Features
//
//   - Bordered content panel with the session phase in the title
//   - Input line with password masking after the server's password prompt
//   - Scrollback buffer with Shift+PageUp/PageDown navigation
//   - Multiple border styles (single, double, heavy, rounded)
//   - Layout that tracks the host terminal size (SIGWINCH)
//   - Differential rendering (only changed rows are redrawn)
//
// # Basic Usage
//
//	cfg, err := fibsterm.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := cli.NewClient(cfg, cli.NewTerminal())
//	if err := client.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Scrollback Navigation
//
// While running, the following keys navigate the scrollback buffer:
//
//   - Shift+PageUp: Scroll up one page
//   - Shift+PageDown: Scroll down one page
//   - Shift+Up: Scroll up one line
//   - Shift+Down: Scroll down one line
//   - Shift+Home: Jump to top of scrollback
//   - Shift+End: Jump to bottom (current output)
//
// Typing automatically scrolls to the bottom.
//
// # Architecture
//
// The package consists of these components:
//
//   - Terminal: raw mode, alternate screen, resize watching and guarded output
//   - Renderer: applies display updates and draws frames using ANSI codes
//   - Relay: reads raw keys, parses escape sequences, sends lines to the server
//   - Client: resolves and connects, runs the session loop, shuts everything
//     down in order and reports worker failures
//
// The reader, renderer and relay each run in their own goroutine. They talk to
// the session loop through a byte channel and an unbounded update queue only.
package cli
