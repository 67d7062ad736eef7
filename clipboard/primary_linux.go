//go:build linux

package clipboard

import cb "github.com/atotto/clipboard"

func readPrimary() (string, error) {
	cb.Primary = true
	defer func() { cb.Primary = false }()
	return cb.ReadAll()
}
