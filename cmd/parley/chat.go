package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"parley/internal/naming"
	"parley/internal/stats"
	"parley/pkg/chat"
	"parley/pkg/chat/chaterrors"
	"parley/pkg/chat/middleware"
	"parley/pkg/config"
	"parley/pkg/conversation"
	"parley/pkg/engine"
	"parley/pkg/logx"
	"parley/pkg/render"
	"parley/pkg/store"
)

// chatOptions collects the chat invocation flags. Every flag has a short
// and a long form bound to the same field.
type chatOptions struct {
	conversation string
	model        string
	repl         bool
	editor       bool
	force        bool
	system       bool
	keep         bool
	extend       bool
	trim         int
	plain        bool
	verbose      bool
}

// runChat parses the chat flags and runs one chat invocation: a single
// prompt/reply exchange, or a REPL with -r.
func runChat(args []string) int {
	var opts chatOptions

	fs := flag.NewFlagSet("parley", flag.ExitOnError)
	fs.Usage = printUsage
	fs.StringVar(&opts.conversation, "c", "", "conversation name")
	fs.StringVar(&opts.conversation, "conversation", "", "conversation name")
	fs.StringVar(&opts.model, "m", "", "model for a new conversation")
	fs.StringVar(&opts.model, "model", "", "model for a new conversation")
	fs.BoolVar(&opts.repl, "r", false, "interactive session")
	fs.BoolVar(&opts.repl, "repl", false, "interactive session")
	fs.BoolVar(&opts.editor, "e", false, "compose the prompt in your editor")
	fs.BoolVar(&opts.editor, "editor", false, "compose the prompt in your editor")
	fs.BoolVar(&opts.force, "f", false, "one-off conversation with the default model")
	fs.BoolVar(&opts.force, "force", false, "one-off conversation with the default model")
	fs.BoolVar(&opts.system, "s", false, "send the prompt as a system message")
	fs.BoolVar(&opts.system, "system", false, "send the prompt as a system message")
	fs.BoolVar(&opts.keep, "k", false, "keep the prompt in the running context")
	fs.BoolVar(&opts.keep, "keep", false, "keep the prompt in the running context")
	fs.BoolVar(&opts.extend, "x", false, "widen the context window for this exchange")
	fs.BoolVar(&opts.extend, "extend", false, "widen the context window for this exchange")
	fs.IntVar(&opts.trim, "trim", -1, "drop context down to the last N user turns")
	fs.BoolVar(&opts.plain, "plain", false, "print replies without markdown rendering")
	fs.BoolVar(&opts.verbose, "verbose", false, "debug logging to stderr")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	logx.SetVerbose(opts.verbose)

	if err := chatCommand(opts, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// chatCommand is the chat flow: resolve the conversation name and model,
// load or create the record, build the client, send, render, save.
func chatCommand(opts chatOptions, args []string) error {
	cfgDir, err := config.Dir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(cfgDir))
	if err != nil {
		return err
	}

	// Resolve -m up front so a bad model name fails before any credential
	// lookup, network call, or store write.
	var explicit *engine.Engine
	if opts.model != "" {
		eng, err := engine.Resolve(opts.model)
		if err != nil {
			return err
		}
		explicit = &eng
	}

	// -force runs ephemeral regardless of the working directory: nothing
	// loaded, nothing saved, no model prompt. Otherwise the name comes
	// from -c and the enclosing git repository; empty means ephemeral.
	name := ""
	if !opts.force {
		name, err = naming.Resolve(".", opts.conversation)
		if err != nil {
			return err
		}
	}

	var st *store.Store
	var rec *conversation.Record
	if name != "" {
		dir, err := store.DefaultDir()
		if err != nil {
			return err
		}
		st, err = store.Open(dir)
		if err != nil {
			return err
		}
		rec, err = st.Load(name)
		if err != nil && !chaterrors.IsNotFound(err) {
			return err
		}
	}

	var eng engine.Engine
	switch {
	case rec != nil:
		// The record pins its model at creation. -m may restate it but
		// never change it.
		eng, err = engine.Resolve(rec.Model)
		if err != nil {
			return err
		}
		if explicit != nil && explicit.Name != eng.Name {
			return chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
				"conversation already uses %s; start a new conversation to use %s",
				eng.Name, explicit.Name)
		}
	case opts.force:
		eng, err = engine.Resolve(cfg.DefaultModel)
		if err != nil {
			return err
		}
	case explicit != nil:
		eng = *explicit
	default:
		eng, err = chooseModel(cfg.DefaultModel)
		if err != nil {
			return err
		}
	}

	if rec == nil {
		rec = conversation.NewRecord(eng.Name, cfg.Includes)
		rec.SeedSystem(cfg.SystemPrompt)
	}

	// Usage accounting must never change a chat's outcome: a ledger that
	// won't open just means nothing gets recorded.
	var recorder middleware.Recorder = middleware.Nop()
	ledger, err := stats.Open(filepath.Join(cfgDir, "usage.db"))
	if err != nil {
		logx.Debugf("usage ledger unavailable: %v", err)
	} else {
		defer func() { _ = ledger.Close() }()
		recorder = &ledgerRecorder{
			ledger:       ledger,
			conversation: name,
			provider:     string(eng.Provider),
			log:          logx.NewLogger("stats"),
		}
	}

	creds, err := credentialsFor(eng, cfg, cfgDir)
	if err != nil {
		return err
	}
	base, err := engine.NewClient(eng, creds)
	if err != nil {
		return err
	}
	client := chat.Chain(base,
		middleware.Logging(logx.NewLogger("chat")),
		middleware.Usage(recorder),
	)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = eng.MaxOutputTokens
	}
	mgr := conversation.NewManagerWithOptions(rec, client, conversation.Options{
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
	})

	if opts.trim >= 0 {
		rec.TrimContext(opts.trim)
	}

	renderer := newRenderer(cfg, opts.plain)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.repl {
		replErr := runREPL(ctx, mgr, renderer)
		return saveAfter(replErr, st, name, rec)
	}

	prompt, err := acquirePrompt(opts, args, cfg)
	if err != nil {
		return err
	}

	reply, sendErr := send(ctx, mgr, prompt, opts)
	if sendErr == nil {
		printReply(reply.Content, renderer)
	}
	return saveAfter(sendErr, st, name, rec)
}

// send dispatches one prompt with the role and window flags from the
// command line.
func send(ctx context.Context, mgr *conversation.Manager, prompt string, opts chatOptions) (chat.Message, error) {
	if opts.system {
		return mgr.SendSystem(ctx, prompt, opts.keep, opts.extend)
	}
	return mgr.SendUser(ctx, prompt, opts.keep, opts.extend)
}

// saveAfter persists the record after an exchange. A failed send still
// saves: history keeps the unanswered input and the context was already
// truncated back. The send error wins when both fail.
func saveAfter(sendErr error, st *store.Store, name string, rec *conversation.Record) error {
	if st == nil || name == "" {
		return sendErr
	}
	if saveErr := st.Save(name, rec); saveErr != nil {
		if sendErr == nil {
			return saveErr
		}
		logx.Warnf("conversation not saved: %v", saveErr)
	}
	return sendErr
}

// credentialsFor resolves provider credentials: environment variables
// first, then the encrypted secrets file, decrypted only when actually
// needed so keyless runs never prompt for a passphrase.
func credentialsFor(eng engine.Engine, cfg *config.Config, cfgDir string) (engine.Credentials, error) {
	if !eng.Provider.Keyed() {
		host := cfg.OllamaHost
		if host == "" {
			host = os.Getenv(eng.Provider.EnvVar())
		}
		return engine.Credentials{Host: host}, nil
	}

	envVar := eng.Provider.EnvVar()
	key := config.Secrets(nil).Credential(envVar)
	if key == "" && config.SecretsFileExists(cfgDir) {
		pass, err := config.Passphrase(false)
		if err != nil {
			return engine.Credentials{}, err
		}
		secrets, err := config.DecryptSecrets(cfgDir, pass)
		if err != nil {
			return engine.Credentials{}, err
		}
		key = secrets.Credential(envVar)
	}
	return engine.Credentials{APIKey: key}, nil
}

// newRenderer builds the reply renderer, or nil when replies should go
// out as raw text: -plain, rendering disabled in the config, or stdout
// is not a terminal.
func newRenderer(cfg *config.Config, plain bool) *render.Renderer {
	if plain || !cfg.Render {
		return nil
	}
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	theme, ok := render.ByName(cfg.Theme)
	if !ok {
		theme = render.Dark
	}
	return render.New(theme, render.TerminalWidth(fd))
}

// printReply writes one assistant reply to stdout, rendered when a
// renderer is available.
func printReply(content string, r *render.Renderer) {
	if r == nil {
		fmt.Println(content)
		return
	}
	fmt.Println(r.Render(content))
}
