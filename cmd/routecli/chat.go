package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
	apperrors "github.com/yanqian/route-forecast/pkg/errors"
)

const quitCommand = "/quit"

func newChatCmd(app *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the route planner from the terminal",
		Long:  "Each line is one chat message. Offered choices are numbered and can be picked with #n. Type /weather to start a route and /quit to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), app.planner, owner, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "terminal", "Conversation owner id")

	return cmd
}

func runChat(ctx context.Context, planner routeplanner.Service, owner string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(in)
	var offered []routeplanner.Choice

	fmt.Fprintln(out, "Type /start for an introduction, /quit to leave.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == quitCommand {
			return nil
		}

		ev := routeplanner.Event{OwnerID: owner, Text: line}
		if choice, ok := pickChoice(line, offered); ok {
			ev = routeplanner.Event{OwnerID: owner, Text: choice.Label, Choice: choice.Value}
		}

		reply, err := planner.Handle(ctx, ev)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", apperrors.MessageOf(err))
			continue
		}
		offered = reply.Directive.Choices
		writeDirective(out, reply.Directive)
	}
}

// pickChoice resolves "#n" against the choices of the previous reply.
func pickChoice(line string, offered []routeplanner.Choice) (routeplanner.Choice, bool) {
	if !strings.HasPrefix(line, "#") {
		return routeplanner.Choice{}, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "#"))
	if err != nil || n < 1 || n > len(offered) {
		return routeplanner.Choice{}, false
	}
	return offered[n-1], true
}

func writeDirective(out io.Writer, d routeplanner.Directive) {
	fmt.Fprintln(out, d.Text)
	for i, choice := range d.Choices {
		fmt.Fprintf(out, "  #%d %s\n", i+1, choice.Label)
	}
}
