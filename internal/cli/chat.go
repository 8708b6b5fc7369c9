package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"vla/internal/domain"
	"vla/internal/router"
)

// Router answers one prospect message in its conversation.
type Router interface {
	Route(ctx context.Context, req router.Request) (string, error)
}

// ChatOptions names the conversation the REPL speaks as.
type ChatOptions struct {
	Key     domain.ConversationKey
	GroupID string
	APIKey  string
}

// RunChat reads prospect messages line by line from in and prints the
// agent's replies to out. "exit" or "quit" ends the session; so does EOF.
// A failed turn is printed and the session continues.
func RunChat(ctx context.Context, r Router, opts ChatOptions, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "prospect> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		reply, err := r.Route(ctx, router.Request{
			Key:     opts.Key,
			GroupID: opts.GroupID,
			APIKey:  opts.APIKey,
			Message: line,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "agent> %s\n", reply)
	}
}
