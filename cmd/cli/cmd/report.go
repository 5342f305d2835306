package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depdiscover/internal/repository"
	"github.com/depdiscover/internal/service"
	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/writer"
)

var (
	// Report command flags
	reportLimit   int
	reportKind    string
	reportMissing bool
	reportJSON    bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "List stored runs or show the dependencies of one run",
	Long: `Read runs stored with discover --persist.

Without arguments the most recent runs are listed. With a run id the run and
its dependencies are shown, optionally restricted to one kind or to the
dependencies no classpath provided.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	binName := BinName()
	reportCmd.Example = `  # List the last 10 runs
  ` + binName + ` report -n 10

  # Show the missing methods of a run
  ` + binName + ` report 4f1c2a9e-... --kind method --missing

  # Dump the stored report
  ` + binName + ` report 4f1c2a9e-... --json`

	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 20, "Number of runs to list")
	reportCmd.Flags().StringVarP(&reportKind, "kind", "k", "", "Dependency kind: type, method or field")
	reportCmd.Flags().BoolVarP(&reportMissing, "missing", "m", false, "Only dependencies no classpath provided")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the stored report as JSON")
}

func parseKind(s string) (model.DependencyKind, error) {
	switch model.DependencyKind(s) {
	case "", model.KindType, model.KindMethod, model.KindField:
		return model.DependencyKind(s), nil
	default:
		return "", fmt.Errorf("unknown dependency kind: %s (valid: type, method, field)", s)
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := requireConfig(); err != nil {
		return err
	}
	kind, err := parseKind(reportKind)
	if err != nil {
		return err
	}

	repos, closeRuns, err := service.OpenRunStore(cfg)
	if err != nil {
		return err
	}
	defer closeRuns()

	ctx := cmd.Context()
	console := newConsole(cmd)

	if len(args) == 0 {
		runs, err := repos.Runs.ListRuns(ctx, reportLimit)
		if err != nil {
			return err
		}
		return console.Runs(runs)
	}

	runID := args[0]
	if reportJSON {
		report, err := repos.Runs.GetReport(ctx, runID)
		if err != nil {
			return err
		}
		return writer.NewPrettyJSONWriter[*model.Report]().Write(report, cmd.OutOrStdout())
	}

	run, err := repos.Runs.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if err := console.Runs([]model.Run{*run}); err != nil {
		return err
	}
	deps, err := repos.Runs.ListDependencies(ctx, runID, repository.DependencyFilter{
		Kind:        kind,
		MissingOnly: reportMissing,
	})
	if err != nil {
		return err
	}
	return console.Dependencies(deps)
}
