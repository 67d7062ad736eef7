//go:build darwin

package clipboard

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func initKeys() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

// injectKeys has no per-character path on macOS: the text goes through
// the clipboard and is pasted with Cmd+V.
func injectKeys(text string) error {
	if err := initKeys(); err != nil {
		return err
	}
	if err := Copy(text); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true)
	return kb.Launching()
}

// Verify checks that the keyboard event binding is initialized.
func Verify() (string, error) {
	if err := initKeys(); err != nil {
		return "", err
	}
	return "keyboard event binding OK (Cmd+V)", nil
}
