// Package clipboard is the text sink side of the app: the system
// clipboard, the primary selection and keystroke injection.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	cb "github.com/atotto/clipboard"
)

var (
	// ErrClipboard wraps clipboard and selection access failures.
	ErrClipboard = errors.New("clipboard")
	// ErrSink wraps keystroke injection failures.
	ErrSink = errors.New("keystroke sink")
)

// atotto selects the primary selection through a package variable, so
// every access is serialised.
var mu sync.Mutex

func Read() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	text, err := cb.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: read: %v", ErrClipboard, err)
	}
	return text, nil
}

func Copy(text string) error {
	mu.Lock()
	defer mu.Unlock()
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("%w: write: %v", ErrClipboard, err)
	}
	return nil
}

// ReadPrimary returns the current selection (X11/Wayland primary). On
// platforms without one it returns "".
func ReadPrimary() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	text, err := readPrimary()
	if err != nil {
		return "", fmt.Errorf("%w: primary selection: %v", ErrClipboard, err)
	}
	return text, nil
}

// Unsupported reports whether no clipboard utility was found.
func Unsupported() bool {
	return cb.Unsupported
}

// System is the process clipboard as a value, for code that takes the
// clipboard as a dependency.
type System struct{}

func (System) Read() (string, error)        { return Read() }
func (System) ReadPrimary() (string, error) { return ReadPrimary() }
func (System) Write(text string) error      { return Copy(text) }
