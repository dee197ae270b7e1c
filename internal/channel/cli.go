package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"minibot/internal/domain"
)

// CLI is the interactive terminal channel. Input is scanned on its own
// goroutine so the REPL stays responsive to context cancellation, and a
// spinner runs while a reply is pending.
type CLI struct {
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
	spin   spinner
}

type CLIConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{
		logger: cfg.Logger,
		in:     cfg.In,
		out:    cfg.Out,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL until the user quits, input ends, or the context is
// cancelled.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	bus.OnOutbound("cli", func(msg domain.OutboundMessage) {
		c.spin.stop()
		c.printReply(msg.Content)
	})

	fmt.Fprintln(c.out, "Minibot CLI. Type your message and press Enter. Type /quit to exit.")
	fmt.Fprint(c.out, "You> ")

	lines, readErr := c.readLines()
	for {
		select {
		case <-ctx.Done():
			c.spin.stop()
			return nil
		case line, ok := <-lines:
			if !ok {
				c.spin.stop()
				return <-readErr
			}
			switch line {
			case "":
				fmt.Fprint(c.out, "You> ")
			case "/quit", "/exit", "/q":
				c.logger.Info("user requested quit")
				return nil
			default:
				c.spin.start(c.out)
				bus.Publish(domain.InboundMessage{
					Channel:   "cli",
					ChatID:    "direct",
					SenderID:  "user",
					Content:   line,
					Timestamp: time.Now(),
				})
			}
		}
	}
}

// readLines scans input on a separate goroutine. The lines channel closes
// on EOF or read failure; readErr then carries the failure, if any.
func (c *CLI) readLines() (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (c *CLI) printReply(content string) {
	fmt.Fprint(c.out, "\r\033[K\n")
	fmt.Fprintln(c.out, "--- Minibot ---")
	fmt.Fprintln(c.out, content)
	fmt.Fprintln(c.out, "---------------")
	fmt.Fprint(c.out, "You> ")
}

// Stop is a no-op; Start returns when its context is cancelled.
func (c *CLI) Stop() error { return nil }

var _ domain.Channel = (*CLI)(nil)

// spinner renders a braille animation while the agent is thinking. start
// and stop are safe to call from the REPL and outbound goroutines.
type spinner struct {
	mu   sync.Mutex
	done chan struct{}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (s *spinner) start(out io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Fprintf(out, "\r%s Thinking...", spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}(s.done)
}

func (s *spinner) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	close(s.done)
	s.done = nil
}
