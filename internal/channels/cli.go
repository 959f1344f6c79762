package channels

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doclantern/doclantern/internal/bus"
)

var cliExitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

// CLIChannel wires the terminal (stdin/stdout) into the channel manager so
// the bot can be exercised without any chat platform configured.
type CLIChannel struct {
	Base
	replies chan bus.OutboundMessage
}

// NewCLIChannel creates a CLIChannel.
func NewCLIChannel(b bus.Bus) *CLIChannel {
	return &CLIChannel{
		Base:    NewBase(bus.ChannelCLI, b, nil),
		replies: make(chan bus.OutboundMessage, 8),
	}
}

func (c *CLIChannel) Name() string { return string(bus.ChannelCLI) }

// Start runs the stdin REPL: reads lines, publishes them inbound, and prints
// each reply. Blocks until ctx is cancelled or stdin is closed.
func (c *CLIChannel) Start(ctx context.Context) error {
	fmt.Printf("Ask about any library. Type 'exit' or press Ctrl+C to quit.\n\n")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		scanDone := make(chan bool, 1)
		go func() {
			scanDone <- scanner.Scan()
		}()

		select {
		case ok := <-scanDone:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if cliExitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		c.HandleMessage("local", "direct", line, nil)
		c.waitForReply(ctx)
	}
}

// waitForReply blocks until the orchestrator's reply lands in Send.
func (c *CLIChannel) waitForReply(ctx context.Context) {
	select {
	case msg := <-c.replies:
		fmt.Printf("\nBot: %s\n\n", msg.Content())
	case <-ctx.Done():
	}
}

// Send hands the reply to the REPL loop for printing.
func (c *CLIChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	select {
	case c.replies <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
