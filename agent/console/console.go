// Package console runs the interactive question loop.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

const Prompt = "You: "

var exitTokens = map[string]bool{
	"quit":    true,
	"exit":    true,
	"bye":     true,
	"goodbye": true,
}

type Asker interface {
	Ask(ctx context.Context, q contractx.Query) (contractx.Result, error)
}

type styles struct {
	assistant lipgloss.Style
	muted     lipgloss.Style
	failure   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		assistant: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")),
		muted:     r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		failure:   r.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
}

type Console struct {
	asker      Asker
	in         io.Reader
	out        io.Writer
	sessionKey string
	st         styles
}

func New(asker Asker, in io.Reader, out io.Writer, sessionKey string) *Console {
	return &Console{
		asker:      asker,
		in:         in,
		out:        out,
		sessionKey: sessionKey,
		st:         newStyles(out),
	}
}

// IsExit reports whether line is one of the exit tokens, ignoring case and
// surrounding whitespace.
func IsExit(line string) bool {
	return exitTokens[strings.ToLower(strings.TrimSpace(line))]
}

// Run reads questions until an exit token, EOF or ctx cancellation. A failed
// turn is reported and the loop continues.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Welcome to the HR Assistant!")
	fmt.Fprintln(c.out, c.st.muted.Render("Ask about leave balances or HR policies. Type 'quit' or 'exit' to stop."))
	fmt.Fprintln(c.out)

	scanner := bufio.NewScanner(c.in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(c.out, Prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, "Goodbye! Thanks for using the HR Assistant.")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if IsExit(line) {
			fmt.Fprintln(c.out, "Thank you for using the HR Assistant. Have a great day!")
			return nil
		}
		if line == "" {
			fmt.Fprintln(c.out, c.st.muted.Render("Please enter a question or type 'quit' to exit."))
			continue
		}

		c.turn(ctx, line)
	}
}

func (c *Console) turn(ctx context.Context, line string) {
	res, err := c.asker.Ask(ctx, contractx.Query{Text: line, SessionKey: c.sessionKey})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("console turn failed")

		msg := res.Answer
		if msg == "" {
			msg = contractx.UserMessage(err)
		}
		fmt.Fprintf(c.out, "%s %s\n", c.st.failure.Render("Error:"), msg)
		if res.Retryable || contractx.Retryable(err) {
			fmt.Fprintln(c.out, c.st.muted.Render("Please try again."))
		}
		fmt.Fprintln(c.out)
		return
	}

	fmt.Fprintf(c.out, "%s %s\n\n", c.st.assistant.Render("HR Assistant:"), res.Answer)
}
