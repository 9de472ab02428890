package lib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"golang.org/x/term"

	"github.com/dpack-io/dpack/internal/dpack/types"
)

// VerifyPassword compares the two password entries verbatim and returns
// the validated password. Any difference is a fatal
// ErrPasswordMismatch: the run aborts before any archive bytes are
// written and the operator must re-invoke. An empty password is
// rejected outright.
func VerifyPassword(first, second string) (string, error) {
	if first == "" {
		return "", fmt.Errorf("password is empty")
	}
	if first != second {
		return "", types.ErrPasswordMismatch
	}
	return first, nil
}

// PromptPassword reads and verifies the archive password. On a
// terminal it prompts twice with echo disabled; when stdin is piped it
// reads a single line without prompting or confirmation.
func PromptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading password: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		return VerifyPassword(line, line)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password confirmation: %w", err)
	}

	return VerifyPassword(string(first), string(second))
}

// EncryptWriter wraps dst in an age scrypt encryption stage. age
// generates a random salt per invocation and stretches the password
// with a deliberately slow scrypt work factor; the derived key is never
// persisted. The returned writer must be closed to finalize the
// ciphertext.
func EncryptWriter(dst io.Writer, password string) (io.WriteCloser, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	w, err := age.Encrypt(dst, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	return w, nil
}

// DecryptReader opens an age scrypt ciphertext stream written by
// EncryptWriter with the same password.
func DecryptReader(src io.Reader, password string) (io.Reader, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(src, identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return r, nil
}
