package permission

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alfredjeanlab/policyconf/internal/ui"
)

// ErrNotInteractive is returned by TerminalPrompter when there is no
// terminal to ask on.
var ErrNotInteractive = errors.New("no terminal available to confirm the request")

// Prompter asks the user to grant a permission.
type Prompter interface {
	Prompt(ctx context.Context, permission string) (bool, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, permission string) (bool, error)

func (f PrompterFunc) Prompt(ctx context.Context, permission string) (bool, error) {
	return f(ctx, permission)
}

// AutoApprove grants every request. The HTTP service uses it: the grant
// request itself is the user's consent.
var AutoApprove Prompter = PrompterFunc(func(context.Context, string) (bool, error) { return true, nil })

// Deny refuses every request.
var Deny Prompter = PrompterFunc(func(context.Context, string) (bool, error) { return false, nil })

// TerminalPrompter asks a yes/no question on a terminal.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Prompt(ctx context.Context, permission string) (bool, error) {
	if !ui.IsTerminal(p.In) {
		return false, ErrNotInteractive
	}
	return ask(ctx, p.In, p.Out, permission)
}

// ask writes the question to out and reads one answer line from in.
func ask(ctx context.Context, in io.Reader, out io.Writer, permission string) (bool, error) {
	fmt.Fprintf(out, "Allow policyconf the %q permission to save exported configurations? [y/N] ", permission)

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errc <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errc:
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("read answer: %w", err)
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
