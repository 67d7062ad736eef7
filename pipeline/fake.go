package pipeline

import (
	"context"
	"sync"
)

// FakeClipboard is an in-memory clipboard and primary selection.
type FakeClipboard struct {
	mu       sync.Mutex
	Text     string
	Primary  string
	ReadErr  error
	WriteErr error
	Writes   []string
}

func (c *FakeClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Text, c.ReadErr
}

func (c *FakeClipboard) ReadPrimary() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Primary, c.ReadErr
}

func (c *FakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Text = text
	c.Writes = append(c.Writes, text)
	return nil
}

// FakeTypist records typed text. With Block it waits for ctx to end,
// like a typist stuck on the type lock.
type FakeTypist struct {
	mu    sync.Mutex
	Err   error
	Block bool
	typed []string
}

func (t *FakeTypist) Type(ctx context.Context, text string) error {
	t.mu.Lock()
	t.typed = append(t.typed, text)
	block, err := t.Block, t.Err
	t.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (t *FakeTypist) Typed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.typed...)
}

type Notification struct {
	Title, Body string
}

// FakeNotifier records notifications.
type FakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *FakeNotifier) Notify(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{title, body})
}

func (n *FakeNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// FakeCompleter answers every request with Reply and keeps the last
// prompt pair.
type FakeCompleter struct {
	mu           sync.Mutex
	Reply        string
	Err          error
	System, User string
}

func (c *FakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.System, c.User = system, user
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.Reply, c.Err
}
