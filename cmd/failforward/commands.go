package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"failureforward/adapters/excel"
	"failureforward/domain/sample"
	"failureforward/internal/config"
	"failureforward/internal/container"
	"failureforward/internal/export"
	"failureforward/internal/importer"
	"failureforward/internal/mapping"
	"failureforward/internal/search"
	"failureforward/internal/server"
	"failureforward/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// withContainer loads configuration and runs fn against a fresh container
func withContainer(cmd *cobra.Command, fn func(c *container.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Shutdown(cmd.Context())
	return fn(c)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withContainer(cmd, func(c *container.Container) error {
				gin.SetMode(c.Config.Server.GinMode)
				return server.Run(ctx, c)
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(c *container.Container) error {
				if c.DB == nil {
					return fmt.Errorf("migrate needs STORAGE=%s", config.StorageSQL)
				}
				n, err := c.SampleRepo.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%d samples)\n", n)
				return nil
			})
		},
	}
}

// parseMapFlags turns "Header=Field" pairs into a mapping. The last "="
// separates the two, so headers may contain "=".
func parseMapFlags(pairs []string) (mapping.Mapping, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	raw := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --map %q (want Header=Field)", pair)
		}
		raw[pair[:i]] = pair[i+1:]
	}
	return mapping.Parse(raw)
}

func newImportCmd() *cobra.Command {
	var (
		mapFlags []string
		opts     importer.Options
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a .csv or .xlsx file of failed experiments",
		Long: `Import a spreadsheet. Columns are matched to the sample schema
automatically; override with --map.

Example: failforward import batch.xlsx --map "Researcher=Scientist" --map "Notes=(ignore)" --skip-duplicates`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMapFlags(mapFlags)
			if err != nil {
				return err
			}
			opts.Mapping = m
			opts.SourceFile = filepath.Base(args[0])

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			table, err := excel.ReadUpload(f, args[0])
			if err != nil {
				return err
			}

			return withContainer(cmd, func(c *container.Container) error {
				out := cmd.OutOrStdout()
				if dryRun {
					return printPreview(cmd, c, table, opts)
				}
				result, err := c.Importer.Import(cmd.Context(), table, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "imported %d samples, skipped %d duplicates\n", result.Imported, result.SkippedDuplicates)
				for _, w := range result.Warnings {
					fmt.Fprintln(out, "warning:", w)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&mapFlags, "map", nil, "Column mapping as Header=Field (repeatable)")
	cmd.Flags().StringVar(&opts.ExtraScientist, "scientist", "", "Scientist for every row")
	cmd.Flags().StringVar(&opts.ExtraProjectID, "project", "", "Project ID for every row")
	cmd.Flags().BoolVar(&opts.SkipDuplicates, "skip-duplicates", false, "Skip rows whose Project ID and Sample ID are already stored")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the column mapping and duplicates without importing")

	return cmd
}

func printPreview(cmd *cobra.Command, c *container.Container, table *excel.Table, opts importer.Options) error {
	out := cmd.OutOrStdout()
	preview, err := c.Importer.Preview(cmd.Context(), table, opts.SourceFile)
	if err != nil {
		return err
	}

	effective := mapping.FromSuggestions(preview.Suggestions)
	if opts.Mapping != nil {
		effective = effective.Overlay(opts.Mapping)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tFIELD\tSCORE")
	for _, s := range preview.Suggestions {
		field := effective[s.Header]
		note := ""
		if s.LowConfidence {
			note = " (low)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f%s\n", s.Header, field, s.Score, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	dups, err := c.Importer.FindDuplicates(cmd.Context(), table, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d rows, %d duplicates\n", preview.RowCount, len(dups))
	for _, d := range dups {
		fmt.Fprintf(out, "  row %d: %s / %s\n", d.Row, d.ProjectID, d.SampleID)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every sample as CSV or Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := export.ContentTypes[format]; !ok {
				return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
			}
			if format == export.FormatXLSX && output == "" {
				output = export.Filename(format)
			}

			return withContainer(cmd, func(c *container.Container) error {
				samples, err := c.SampleRepo.List(cmd.Context())
				if err != nil {
					return err
				}

				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if err := export.Write(w, format, samples); err != nil {
					return err
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d samples to %s\n", len(samples), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", export.FormatCSV, "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (csv defaults to stdout)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var criteria search.Criteria

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search stored samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria.Query = strings.Join(args, " ")
			if criteria.IsEmpty() {
				return fmt.Errorf("give search terms or a filter")
			}

			return withContainer(cmd, func(c *container.Container) error {
				results, err := c.SampleRepo.Search(cmd.Context(), criteria)
				if err != nil {
					return err
				}
				return printSamples(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().StringVar(&criteria.Scientist, "scientist", "", "Filter by scientist")
	cmd.Flags().StringVar(&criteria.SampleID, "sample-id", "", "Filter by sample ID")
	cmd.Flags().StringVar(&criteria.Date, "date", "", "Filter by date")
	cmd.Flags().IntVar(&criteria.Limit, "limit", 0, "Maximum results (0 for all)")
	return cmd
}

func printSamples(w io.Writer, samples []*sample.Sample) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tSAMPLE\tSCIENTIST\tDATE\tCOMMENTS")
	for _, s := range samples {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ProjectID, s.SampleID, s.Scientist, s.Date, firstLine(s.Comments))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d results\n", len(samples))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dataset statistics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(c *container.Container) error {
				samples, err := c.SampleRepo.List(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats.Compute(samples))
			})
		},
	}
}
