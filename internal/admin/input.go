package admin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/apptracker/internal/cryptox"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// getPassword prompts twice on w and reads the password from the terminal
// without echo. The returned slice should be wiped by the caller.
func getPassword(w io.Writer) ([]byte, error) {
	first, err := prompt(w, "Enter password: ")
	if err != nil {
		return nil, err
	}

	second, err := prompt(w, "Repeat password: ")
	if err != nil {
		return nil, err
	}
	defer cryptox.WipeByteArray(second)

	if !bytes.Equal(first, second) {
		cryptox.WipeByteArray(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

func prompt(w io.Writer, text string) ([]byte, error) {
	if _, err := fmt.Fprint(w, text); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
