// Package testutil provides shared test helpers for databases, prompt
// directories and a scripted language model.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/storage"
	"github.com/starford/ladle/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ladle-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPrompts creates a temporary prompt directory with a storage.Provider.
func TestPrompts(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Call records one completion request seen by a Completer.
type Call struct {
	System    string
	Messages  []llm.Message
	MaxTokens int
}

// Completer is a scripted llm.Completer. Each call consumes the next reply;
// once the script is exhausted the last reply repeats. Err, when set, is
// returned instead of any reply.
type Completer struct {
	mu      sync.Mutex
	replies []string
	Err     error
	calls   []Call
}

// NewCompleter returns a Completer that answers with replies in order.
func NewCompleter(replies ...string) *Completer {
	return &Completer{replies: replies}
}

// Complete implements llm.Completer.
func (c *Completer) Complete(_ context.Context, system string, messages []llm.Message, maxTokens int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{
		System:    system,
		Messages:  append([]llm.Message(nil), messages...),
		MaxTokens: maxTokens,
	})
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.replies) == 0 {
		return "", nil
	}
	i := len(c.calls) - 1
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	return c.replies[i], nil
}

// Calls returns a copy of the recorded requests.
func (c *Completer) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// LastCall returns the most recent request, failing the test when none.
func (c *Completer) LastCall(t *testing.T) Call {
	t.Helper()
	calls := c.Calls()
	if len(calls) == 0 {
		t.Fatal("completer was never called")
	}
	return calls[len(calls)-1]
}
