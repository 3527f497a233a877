package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"parley/pkg/conversation"
	"parley/pkg/render"
)

// runREPL drives an interactive session over mgr. The session works on
// its own copy of the context; the deferred Close reconciles accepted
// exchanges into the record before the caller saves, on every exit path
// including signals. Input is read on a goroutine so a signal can
// interrupt a blocked read.
func runREPL(ctx context.Context, mgr *conversation.Manager, r *render.Renderer) error {
	sess := mgr.OpenSession()
	defer sess.Close()

	type input struct {
		line string
		ok   bool
	}
	inputs := make(chan input)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case inputs <- input{line: scanner.Text(), ok: true}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case inputs <- input{}: // EOF or read error ends the loop
		case <-ctx.Done():
		}
	}()

	for {
		fmt.Fprint(os.Stderr, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return nil
		case in := <-inputs:
			if !in.ok {
				fmt.Fprintln(os.Stderr)
				return nil
			}
			line := strings.TrimSpace(in.line)
			if line == "" {
				continue
			}
			if line == "quit" {
				return nil
			}
			reply, err := sess.Send(ctx, line)
			if err != nil {
				return err
			}
			fmt.Println("---")
			printReply(reply.Content, r)
			fmt.Println("---")
		}
	}
}
