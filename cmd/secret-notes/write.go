package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var writeText string

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Encrypt a note and print its one-time link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()

		text := writeText
		if text == "" {
			var err error
			text, err = readNoteText(bufio.NewReader(cmd.InOrStdin()), out)
			if err != nil {
				return err
			}
		}

		password, err := promptPassword(out, "Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword(out, "Repeat password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		app, err := loadApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer app.cleanup()

		res, err := app.noteService.Submit(cmd.Context(), text, password, "cli:"+hostname())
		if err != nil {
			return err
		}

		fmt.Fprintln(out, successText("Note created."), "It can be opened once, until", res.ExpiresAt.Local().Format("2006-01-02 15:04 MST")+".")
		fmt.Fprintln(out, linkText(res.Link))
		return nil
	},
}

func init() {
	writeCmd.Flags().StringVarP(&writeText, "text", "t", "", "note text (read from stdin when empty)")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
