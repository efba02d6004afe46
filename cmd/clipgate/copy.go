package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipgate/internal/clipaccess"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy stdin to the clipboard (like pbcopy)",
		Long: `Reads stdin and publishes it as one clipboard format.

Text formats (text, ansi, oemtext) are NUL-terminated and, for "text",
converted to UTF-16. Any other format is written verbatim, so

  clipgate copy --format 0xC0F1 < blob.bin

stores blob.bin under registered format 0xC0F1. The clipboard is emptied
first unless --keep is given.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	f := cmd.Flags()
	f.String("format", "text", "clipboard format: alias, CF_ name or numeric id")
	f.Bool("keep", false, "keep the other formats already on the clipboard")
	addCommonFlags(cmd)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper) error {
	format, err := parseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	payload := encodePayload(format, data)
	if len(payload) == 0 {
		return nil
	}

	api, err := apiFactory()
	if err != nil {
		return fmt.Errorf("clipboard backend: %w", err)
	}
	arb, err := newArbiter(v, api)
	if err != nil {
		return err
	}
	tok, err := openClipboard(cmd.Context(), arb)
	if err != nil {
		return err
	}
	defer tok.Release()

	if !v.GetBool("keep") {
		if err := clipaccess.Empty(tok); err != nil {
			return err
		}
	}
	if err := clipaccess.WriteBytes(tok, format, payload); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	logPayload("copied to clipboard", format, payload)
	return nil
}
