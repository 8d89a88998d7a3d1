package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"theonebook/internal/bootstrap"
	"theonebook/internal/config"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the whole book to a PDF file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *bootstrap.Runtime, _ config.FileConfig) error {
				doc, stats, err := rt.App.Export(cmd.Context())
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				target := strings.TrimSpace(output)
				if target == "" {
					target = rt.App.ExportFilename()
				}
				if dir := filepath.Dir(target); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create output directory: %w", err)
					}
				}
				tmp := target + ".tmp"
				f, err := os.Create(tmp)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				n, err := doc.WriteTo(f)
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					_ = os.Remove(tmp)
					return fmt.Errorf("write pdf: %w", err)
				}
				if err := os.Rename(tmp, target); err != nil {
					return fmt.Errorf("finalize output: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, %d images, %d skipped, %d bytes)\n",
					target, stats.Pages, stats.Images, stats.ImageFailures, n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: configured export filename)")
	return cmd
}
