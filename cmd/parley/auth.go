package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"parley/pkg/chat/chaterrors"
	"parley/pkg/config"
	"parley/pkg/engine"
)

// runAuth dispatches the auth subcommands managing the encrypted
// secrets file.
func runAuth(args []string) int {
	if len(args) == 0 {
		printAuthUsage()
		return 1
	}

	var err error
	switch args[0] {
	case "set":
		if len(args) != 2 {
			printAuthUsage()
			return 1
		}
		err = authSet(args[1])
	case "unset":
		if len(args) != 2 {
			printAuthUsage()
			return 1
		}
		err = authUnset(args[1])
	case "list":
		err = authList()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown auth command %q\n\n", args[0])
		printAuthUsage()
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printAuthUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  parley auth set <provider>     store an API key (anthropic, openai, google)\n")
	fmt.Fprintf(os.Stderr, "  parley auth unset <provider>   remove a stored API key\n")
	fmt.Fprintf(os.Stderr, "  parley auth list               stored key names\n")
}

// keyedProvider maps a provider argument to a provider that carries API
// keys in the secrets file.
func keyedProvider(name string) (engine.Provider, error) {
	switch prov := engine.Provider(strings.ToLower(name)); prov {
	case engine.ProviderAnthropic, engine.ProviderOpenAI, engine.ProviderGoogle:
		return prov, nil
	case engine.ProviderOllama:
		return "", chaterrors.NewError(chaterrors.ErrorTypeConfiguration,
			"ollama uses no API key; set ollama_host in the config or OLLAMA_HOST")
	default:
		return "", chaterrors.NewErrorf(chaterrors.ErrorTypeConfiguration,
			"unknown provider %q (anthropic, openai, google)", name)
	}
}

// authSet stores one provider key. Creating the file asks for the
// passphrase twice; updating an existing file asks once to decrypt it.
func authSet(provider string) error {
	prov, err := keyedProvider(provider)
	if err != nil {
		return err
	}
	dir, err := config.Dir()
	if err != nil {
		return err
	}

	secrets := config.Secrets{}
	var pass string
	if config.SecretsFileExists(dir) {
		pass, err = config.Passphrase(false)
		if err != nil {
			return err
		}
		secrets, err = config.DecryptSecrets(dir, pass)
		if err != nil {
			return err
		}
	} else {
		pass, err = config.Passphrase(true)
		if err != nil {
			return err
		}
	}

	key, err := readSecret(fmt.Sprintf("API key for %s: ", prov))
	if err != nil {
		return err
	}
	if key == "" {
		return chaterrors.NewError(chaterrors.ErrorTypeEmptyInput, "empty API key, aborting")
	}

	secrets[prov.EnvVar()] = key
	if err := config.EncryptSecrets(dir, pass, secrets); err != nil {
		return err
	}
	fmt.Printf("Stored %s\n", prov.EnvVar())
	return nil
}

func authUnset(provider string) error {
	prov, err := keyedProvider(provider)
	if err != nil {
		return err
	}
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if !config.SecretsFileExists(dir) {
		return chaterrors.NewError(chaterrors.ErrorTypeStorageNotFound, "no secrets file")
	}

	pass, err := config.Passphrase(false)
	if err != nil {
		return err
	}
	secrets, err := config.DecryptSecrets(dir, pass)
	if err != nil {
		return err
	}
	envVar := prov.EnvVar()
	if _, ok := secrets[envVar]; !ok {
		return chaterrors.NewErrorf(chaterrors.ErrorTypeStorageNotFound,
			"no key stored for %s", prov)
	}
	delete(secrets, envVar)
	if err := config.EncryptSecrets(dir, pass, secrets); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", envVar)
	return nil
}

func authList() error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if !config.SecretsFileExists(dir) {
		fmt.Println("No stored keys.")
		return nil
	}
	pass, err := config.Passphrase(false)
	if err != nil {
		return err
	}
	secrets, err := config.DecryptSecrets(dir, pass)
	if err != nil {
		return err
	}
	names := secrets.Names()
	if len(names) == 0 {
		fmt.Println("No stored keys.")
		return nil
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// readSecret reads a credential without echo on a terminal, or one line
// from stdin otherwise so setup can be piped.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
