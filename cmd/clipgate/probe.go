package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipgate/internal/clipaccess"
)

type probeFormat struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type probeResult struct {
	CanAccess     bool          `json:"can_access"`
	IsLockTimeout bool          `json:"is_lock_timeout"`
	IsOpenTimeout bool          `json:"is_open_timeout"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	Formats       []probeFormat `json:"formats,omitempty"`
}

func newProbeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Try to open the clipboard and report what happened",
		Long: `Acquires the clipboard with the configured retries and timeout, reports
whether access was granted (or which lock timed out) and, if it was, which
standard formats are present. The clipboard is released before exiting.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runProbe(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output JSON")
	addCommonFlags(cmd)

	return cmd
}

func runProbe(cmd *cobra.Command, v *viper.Viper) error {
	api, err := apiFactory()
	if err != nil {
		return fmt.Errorf("clipboard backend: %w", err)
	}
	arb, err := newArbiter(v, api)
	if err != nil {
		return err
	}

	start := time.Now()
	tok, err := arb.AcquireContext(cmd.Context())
	if err != nil {
		return err
	}
	res := probeResult{
		CanAccess:     tok.CanAccess(),
		IsLockTimeout: tok.IsLockTimeout(),
		IsOpenTimeout: tok.IsOpenTimeout(),
		Elapsed:       time.Since(start),
	}
	if tok.CanAccess() {
		for _, id := range wellKnownFormats {
			res.Formats = append(res.Formats, probeFormat{
				ID:        id,
				Name:      formatLabel(id),
				Available: clipaccess.IsFormatAvailable(tok, id),
			})
		}
	}
	tok.Release()

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Access:\t%s\n", accessLabel(res))
	fmt.Fprintf(w, "Elapsed:\t%s\n", res.Elapsed.Round(time.Millisecond))
	for _, f := range res.Formats {
		mark := "-"
		if f.Available {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s:\t%s\n", f.Name, mark)
	}
	return w.Flush()
}

func accessLabel(res probeResult) string {
	switch {
	case res.CanAccess:
		return "granted"
	case res.IsLockTimeout:
		return "busy (held by another operation in this process)"
	case res.IsOpenTimeout:
		return "busy (held by another program)"
	default:
		return "denied"
	}
}
