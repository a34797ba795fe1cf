package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zouzou-2006/algovision"
	"github.com/Zouzou-2006/algovision/internal/ir"
)

var (
	flagFormat string
	flagJobs   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Analyze source files and print their IR",
	Long:  "Runs one-shot analysis over the given Python/C# files. Files with unsupported extensions are skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	analyzeCmd.Flags().IntVar(&flagJobs, "jobs", runtime.NumCPU(), "max concurrent analyses")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if flagFormat != "json" && flagFormat != "text" {
		return fmt.Errorf("invalid format %q (want json or text)", flagFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	eng, err := algovision.New(engineOptions(cfg, log)...)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()
	if _, err := eng.Init(ctx); err != nil {
		return err
	}

	results := make([]*algovision.Result, len(args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(flagJobs)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			lang, ok := algovision.LanguageForFile(path)
			if !ok {
				log.Warn("skipping unsupported file", "path", path)
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			eng.OpenDoc(path, lang, string(data), 1)
			defer eng.CloseDoc(path)

			res, err := eng.Analyze(ctx, path, fmt.Sprintf("cli-%d", i), nil)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if flagFormat == "json" {
		return outputJSON(results)
	}
	return outputText(results)
}

func outputJSON(results []*algovision.Result) error {
	out := make([]*algovision.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func outputText(results []*algovision.Result) error {
	heading := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	for _, r := range results {
		if r == nil {
			continue
		}
		heading.Printf("%s (%s)\n", r.DocID, r.Language)
		fmt.Printf("  outline: %d  cfgs: %d  calls: %d  classes: %d  imports: %d\n",
			len(r.IR.Outline), len(r.IR.CFGs), len(r.IR.Calls), len(r.IR.Classes), len(r.IR.Imports))
		dim.Printf("  parse %dms, ir %dms, total %dms\n",
			r.Perf.ParseMs, r.Perf.IRMs, r.Perf.TotalMs)
		for _, d := range r.Diagnostics {
			c := severityColor(d.Severity)
			c.Printf("  %s", d.Code)
			fmt.Printf(": %s", d.Message)
			if d.Range != nil {
				fmt.Printf(" (line %d)", d.Range.Start.Line)
			}
			fmt.Println()
		}
	}
	return nil
}

func severityColor(sev ir.Severity) *color.Color {
	switch sev {
	case ir.SeverityError:
		return color.New(color.FgRed)
	case ir.SeverityWarn:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgBlue)
	}
}
