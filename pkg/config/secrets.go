package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/term"

	"parley/pkg/chat/chaterrors"
	"parley/pkg/logx"
)

// Secrets file format: [salt][nonce][ciphertext+tag], AES-256-GCM with a
// scrypt-derived key.
const (
	secretsFileName = "secrets.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
)

// PassphraseEnv names the environment variable consulted before any
// interactive passphrase prompt.
const PassphraseEnv = "PARLEY_PASSPHRASE"

// genericKeyEnv is the provider-independent credential override.
const genericKeyEnv = "PARLEY_API_KEY"

// Secrets maps provider credential variable names (ANTHROPIC_API_KEY and
// friends) to values, as stored in the encrypted secrets file.
type Secrets map[string]string

// Credential resolves the credential for envVar: the process environment
// first, then the generic PARLEY_API_KEY, then the secrets file contents.
// Empty means nothing was found. Works on a nil receiver (no secrets
// file loaded).
func (s Secrets) Credential(envVar string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if v := os.Getenv(genericKeyEnv); v != "" {
		return v
	}
	return s[envVar]
}

// Names returns the stored secret names, not values.
func (s Secrets) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

// SecretsPath returns the secrets file location inside dir.
func SecretsPath(dir string) string {
	return filepath.Join(dir, secretsFileName)
}

// SecretsFileExists reports whether a secrets file is present in dir.
func SecretsFileExists(dir string) bool {
	_, err := os.Stat(SecretsPath(dir))
	return err == nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EncryptSecrets encrypts secrets with the passphrase and writes the
// file with 0600 permissions. Key material is zeroed after use.
func EncryptSecrets(dir, passphrase string, secrets Secrets) error {
	passBytes := []byte(passphrase)
	defer zero(passBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	defer zero(plaintext)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.WriteFile(SecretsPath(dir), fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecrets reads and decrypts the secrets file in dir. A wrong
// passphrase and a damaged file are indistinguishable (GCM authentication
// failure) and share one message. File permissions looser than 0600 are
// tightened on open.
func DecryptSecrets(dir, passphrase string) (Secrets, error) {
	path := SecretsPath(dir)

	info, err := os.Stat(path)
	if err != nil {
		return nil, chaterrors.NewErrorWithCause(chaterrors.ErrorTypeConfiguration, err,
			fmt.Sprintf("cannot read secrets file: %v", err))
	}
	if info.Mode().Perm() != 0600 {
		logx.Warnf("secrets file had loose permissions (%04o), tightening to 0600", info.Mode().Perm())
		if err := os.Chmod(path, 0600); err != nil {
			return nil, fmt.Errorf("failed to fix secrets file permissions: %w", err)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	minSize := saltSize + nonceSize + 16 // 16 is the GCM tag size
	if len(fileData) < minSize {
		return nil, chaterrors.NewError(chaterrors.ErrorTypeConfiguration,
			"secrets file is corrupted (too small)")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passBytes := []byte(passphrase)
	defer zero(passBytes)

	key, err := scrypt.Key(passBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, chaterrors.NewError(chaterrors.ErrorTypeConfiguration,
			"decryption failed (wrong passphrase or corrupted file)")
	}
	defer zero(plaintext)

	var secrets Secrets
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}

// Passphrase obtains the secrets passphrase: PARLEY_PASSPHRASE when set,
// otherwise a no-echo prompt on the terminal. confirm asks twice and
// requires a match (used when creating or rewriting the file).
func Passphrase(confirm bool) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", chaterrors.NewError(chaterrors.ErrorTypeConfiguration,
			"no passphrase available (set "+PassphraseEnv+" or run on a terminal)")
	}

	pass, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if pass != again {
			return "", chaterrors.NewError(chaterrors.ErrorTypeConfiguration,
				"passphrases do not match")
		}
	}
	return pass, nil
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	defer zero(pass)
	return string(pass), nil
}
