package server

import (
	"context"
	"fmt"
	"os/exec"
)

// EditorOpener launches the user's editor for a document. Invoked out-of-band
// on viewer request; not part of the broadcast contract.
type EditorOpener interface {
	Open(ctx context.Context, path string) error
}

// ExecOpener shells out to a configured editor command.
type ExecOpener struct {
	Command string
}

// Open starts the editor without waiting for it to exit.
func (o *ExecOpener) Open(ctx context.Context, path string) error {
	if o.Command == "" {
		return fmt.Errorf("server.ExecOpener.Open: no editor configured")
	}
	cmd := exec.CommandContext(ctx, o.Command, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("server.ExecOpener.Open: %w", err)
	}
	// Reap the child in the background; the viewer does not wait on it.
	go func() { _ = cmd.Wait() }()
	return nil
}
