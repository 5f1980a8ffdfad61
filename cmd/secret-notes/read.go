package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/amirk1998/secret-notes/internal/link"
	"github.com/amirk1998/secret-notes/internal/models"
	"github.com/amirk1998/secret-notes/internal/service"
	apperrors "github.com/amirk1998/secret-notes/pkg/errors"
)

var readCmd = &cobra.Command{
	Use:   "read <link|id>",
	Short: "Open a note once, prompting for its password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := link.ParseID(args[0])
		if err != nil {
			return err
		}

		app, err := loadApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.cleanup()

		out := cmd.OutOrStdout()
		view := app.noteService.Load(cmd.Context(), id)
		return unlockLoop(cmd.Context(), view, out, func() (string, error) {
			return promptPassword(out, "Password: ")
		})
	},
}

// unlockLoop prompts until the view leaves Locked. A wrong password re-prompts.
func unlockLoop(ctx context.Context, view *service.View, w io.Writer, ask func() (string, error)) error {
	state := view.State()

	for state.Status == models.StatusLocked {
		if errors.Is(state.Err, apperrors.ErrRateLimitExceeded) {
			return fmt.Errorf("too many attempts, try again later")
		}
		if errors.Is(state.Err, apperrors.ErrWrongPassword) {
			fmt.Fprintln(w, warnText("Wrong password, try again."))
		}

		password, err := ask()
		if err != nil {
			return err
		}
		state = view.Unlock(ctx, password)
	}

	switch state.Status {
	case models.StatusSuccess:
		fmt.Fprintln(w, successText("Note decrypted. It has been destroyed on the server."))
		fmt.Fprintln(w)
		fmt.Fprintln(w, state.Text)
		return nil
	case models.StatusNotFound:
		return apperrors.ErrNoteNotFound
	case models.StatusExpired:
		return apperrors.ErrNoteExpired
	case models.StatusAlreadyRead:
		return apperrors.ErrNoteAlreadyRead
	case models.StatusUnavailable:
		return fmt.Errorf("%w, try again later", apperrors.ErrStoreUnavailable)
	default:
		return fmt.Errorf("unexpected note state %s", state.Status)
	}
}
