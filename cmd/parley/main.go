// Parley is a command-line chat assistant that keeps named, persistent
// conversations with completion services and manages the context window
// sent on every exchange.
//
// Usage:
//
//	parley [flags] [prompt ...]
//	parley auth set|unset|list
//	parley stats [-n N]
//	parley list
//	parley models
//	parley version
package main

import (
	"fmt"
	"os"

	"parley/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches to a maintenance subcommand when the first argument
// names one, otherwise treats the whole command line as a chat
// invocation. It returns the process exit code.
func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "auth":
			return runAuth(args[1:])
		case "stats":
			return runStats(args[1:])
		case "list":
			return runList()
		case "models":
			return runModels()
		case "version":
			fmt.Printf("parley %s\n  commit: %s\n  built:  %s\n",
				version.Version, version.Commit, version.Date)
			return 0
		case "help":
			printUsage()
			return 0
		}
	}
	return runChat(args)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Parley - a context-window-managing chat assistant\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  parley [flags] [prompt ...]   send one message (or open a REPL with -r)\n")
	fmt.Fprintf(os.Stderr, "  parley auth set|unset|list    manage the encrypted API key store\n")
	fmt.Fprintf(os.Stderr, "  parley stats [-n N]           per-model usage summary\n")
	fmt.Fprintf(os.Stderr, "  parley list                   stored conversation names\n")
	fmt.Fprintf(os.Stderr, "  parley models                 usable model names\n")
	fmt.Fprintf(os.Stderr, "  parley version                build version\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	fmt.Fprintf(os.Stderr, "  -c, -conversation name   conversation name (\":name\" appends to the repo-derived name)\n")
	fmt.Fprintf(os.Stderr, "  -m, -model name          model for a new conversation (see 'parley models')\n")
	fmt.Fprintf(os.Stderr, "  -r, -repl                interactive session\n")
	fmt.Fprintf(os.Stderr, "  -e, -editor              compose the prompt in your editor\n")
	fmt.Fprintf(os.Stderr, "  -f, -force               one-off conversation: nothing loaded or saved, default model\n")
	fmt.Fprintf(os.Stderr, "  -s, -system              send the prompt as a system message\n")
	fmt.Fprintf(os.Stderr, "  -k, -keep                keep the prompt in the running context\n")
	fmt.Fprintf(os.Stderr, "  -x, -extend              widen the context window for this exchange\n")
	fmt.Fprintf(os.Stderr, "  -trim N                  drop context down to the last N user turns before sending\n")
	fmt.Fprintf(os.Stderr, "  -plain                   print replies without markdown rendering\n")
	fmt.Fprintf(os.Stderr, "  -verbose                 debug logging to stderr\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  parley what does this error mean\n")
	fmt.Fprintf(os.Stderr, "  parley -c :review -m gpt-4o -r\n")
	fmt.Fprintf(os.Stderr, "  parley -e -k -s\n")
}
