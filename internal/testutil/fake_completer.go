package testutil

import (
	"context"
	"sync/atomic"
)

// FakeCompleter is a configurable papertrail.Completer for testing.
type FakeCompleter struct {
	ModelName string
	PromptFn  func(ctx context.Context, system, user string) (string, error)

	calls atomic.Int32
}

// Prompt delegates to PromptFn or echoes the user message.
func (f *FakeCompleter) Prompt(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	if f.PromptFn != nil {
		return f.PromptFn(ctx, system, user)
	}
	return "echo: " + user, nil
}

// Model returns ModelName, or "fake-model" when unset.
func (f *FakeCompleter) Model() string {
	if f.ModelName == "" {
		return "fake-model"
	}
	return f.ModelName
}

// Calls returns how many times Prompt was invoked.
func (f *FakeCompleter) Calls() int { return int(f.calls.Load()) }
