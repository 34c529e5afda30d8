// Package cmds has the command objects of walletd's CLI. Commands are
// plain structs validated before execution, so the cobra layer and tests
// drive the same code paths.
package cmds

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lainio/err2/try"
)

var ErrInvalid = errors.New("invalid command, check arguments")

type Result interface {
	JSON() ([]byte, error)
}

type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// storeKeyLength is the hex length of a 256-bit at-rest cipher key.
const storeKeyLength = 64

// ValidateStoreKey checks an at-rest cipher key argument. An empty key is
// allowed and disables the cipher.
func ValidateStoreKey(k string) error {
	if k == "" {
		return nil
	}
	if len(k) != storeKeyLength {
		return errors.New("store key is not valid")
	}
	if _, err := hex.DecodeString(k); err != nil {
		return errors.New("store key is not valid hex")
	}
	return nil
}

// ValidateTime checks a daily backup time argument, "15:04" or
// "15:04:05".
func ValidateTime(t string) error {
	if _, err := time.Parse("15:04", t); err == nil {
		return nil
	}
	if _, err := time.Parse("15:04:05", t); err == nil {
		return nil
	}
	return fmt.Errorf("time %s is not valid", t)
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it throws
// an error.
func Fprintln(w io.Writer, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it throws
// an error.
func Fprintf(w io.Writer, format string, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}

// Fprint is fmt.Fprint but it allows writer to be nil. Note! it throws an
// error.
func Fprint(w io.Writer, a ...any) {
	if w != nil {
		try.To1(fmt.Fprint(w, a...))
	}
}
