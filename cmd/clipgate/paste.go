package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipgate/internal/clipaccess"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print one clipboard format to stdout (like pbpaste)",
		Long: `Reads one clipboard format and writes it to stdout.

If the clipboard holds no data for --format, nothing is printed (exit 0).
To dump a registered format:

  clipgate paste --format 0xC0F1 > blob.bin`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}

	f := cmd.Flags()
	f.String("format", "text", "clipboard format: alias, CF_ name or numeric id")
	addCommonFlags(cmd)

	return cmd
}

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	format, err := parseFormat(v.GetString("format"))
	if err != nil {
		return err
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
	data, err := clipaccess.ReadBytes(tok, format)
	tok.Release()
	if errors.Is(err, clipaccess.ErrFormatUnavailable) {
		// Requested format not present — exit 0, print nothing (pbpaste behaviour).
		return nil
	}
	if err != nil {
		return fmt.Errorf("paste: %w", err)
	}

	logPayload("read from clipboard", format, data)
	_, err = cmd.OutOrStdout().Write(decodePayload(format, data))
	return err
}
