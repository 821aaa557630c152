package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/quangmanh-dev/webscan/internal/scan"
	sharederrors "github.com/quangmanh-dev/webscan/internal/shared/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Run a one-shot scan against a target from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		keys, _ := cmd.Flags().GetStringSlice("keys")
		asJSON, _ := cmd.Flags().GetBool("json")

		defer func() {
			_ = logger.Sync()
		}()

		target := args[0]
		parsed, err := url.Parse(target)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" {
			return sharederrors.ErrInvalidURL
		}
		mode, ok := scan.ParseMode(modeFlag)
		if !ok {
			return sharederrors.ErrInvalidMode
		}

		// The CLI is a local operator tool: no session, no rate limit, and
		// super-admin is granted directly.
		c, err := buildCore(false)
		if err != nil {
			return err
		}
		defer c.close()

		bundle := c.dispatcher.Run(cmd.Context(), scan.Context{
			URL:      parsed,
			RawURL:   target,
			Mode:     mode,
			Selected: keys,
		})

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(bundle)
		}

		fmt.Printf("%s %s (%s mode, %d finding(s), %dms)\n",
			colorInfo("scan"), target, mode, len(bundle.Findings), bundle.Meta.DurationMs)
		for _, f := range bundle.Findings {
			fmt.Printf("  %s %s: %s\n", severityBadge(f.Severity), f.ID, f.Title)
			if f.Recommendation != "" {
				fmt.Printf("      %s\n", f.Recommendation)
			}
		}
		fmt.Printf("%s business=%d technical=%d\n",
			colorInfo("scores"), bundle.Scores.BusinessScore, bundle.Scores.TechnicalScore)
		return nil
	},
}

func init() {
	scanCmd.Flags().String("mode", string(scan.ModeBusiness), "scan mode: business, engineer, or super-admin")
	scanCmd.Flags().StringSlice("keys", nil, "scan keys to run (default: all keys the mode allows)")
	scanCmd.Flags().Bool("json", false, "emit the raw scan bundle as JSON")
	rootCmd.AddCommand(scanCmd)
}
