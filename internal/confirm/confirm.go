// Package confirm provides the approval gates placed in front of the
// summary dispatch.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
)

// Auto approves every request; used for non-interactive pipelines.
type Auto struct{}

// Approve always approves.
func (Auto) Approve(context.Context, string) (bool, error) { return true, nil }

// Interactive shows the rendered prompt and asks the operator whether
// it may leave the machine. Out receives the preview (stderr in the
// CLI) so stdout stays reserved for the summary.
type Interactive struct {
	Out io.Writer
}

// Approve blocks until the operator answers. Aborting the form (ctrl-c)
// counts as a decline, not an error.
func (i Interactive) Approve(ctx context.Context, preview string) (bool, error) {
	if i.Out != nil {
		fmt.Fprintf(i.Out, "=== LLM prompt preview ===\n%s\n==========================\n", preview)
	}

	approved := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Send this prompt to the LLM backend?").
			Affirmative("Send").
			Negative("Cancel").
			Value(&approved),
	))

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}

		return false, fmt.Errorf("run confirmation prompt: %w", err)
	}

	return approved, nil
}
