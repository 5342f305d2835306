package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/depdiscover/internal/formatter"
	"github.com/depdiscover/internal/service"
	"github.com/depdiscover/pkg/config"
	apperrors "github.com/depdiscover/pkg/errors"
	"github.com/depdiscover/pkg/filter"
)

// discoverOptions holds the discover flags. Only flags set on the command
// line override the configuration.
type discoverOptions struct {
	projectDir   string
	classpath    []string
	against      []string
	providedDir  string
	entryPoints  []string
	resultFile   string
	outputFormat string
	cleanCache   bool
	repoURL      string
	repoDir      string
	repoFile     string
	persist      bool
	graph        bool
	summary      bool
	owned        []string
}

var discoverOpts discoverOptions

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find the external dependencies of a set of classes",
	Long: `Analyze every method reachable from the entry classes and write the
requirements no classpath satisfies.

The primary classpath holds the classes under analysis; directories contribute
their loose class files and every jar below them. The against classpath, the
jars of the provided classpath directory and the jars of the repository satisfy
dependencies without being analyzed.

Entry points are class names (com.acme.Main), package wildcards (com.acme.*)
or * for every class of the primary classpath.

The exit status is 1 when a fatal diagnostic was reported.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	binName := BinName()
	discoverCmd.Example = `  # Analyze every class below ./classpath
  ` + binName + ` discover

  # Analyze a project elsewhere and write JSON
  ` + binName + ` discover -D ./project -t json -r deps.json

  # Use a remote repository archive and print a summary
  ` + binName + ` discover -u https://repo.example.com/provided.zip --summary`

	discoverOpts.register(discoverCmd.Flags())
	discoverCmd.MarkFlagsMutuallyExclusive("repository-url", "repository-dir", "repository-file")
}

func (o *discoverOptions) register(f *pflag.FlagSet) {
	f.StringVarP(&o.projectDir, "project-dir", "D", "", "Base directory for relative paths")
	f.StringArrayVarP(&o.classpath, "classpath", "c", nil,
		"Classpath to analyze, a path list (repeatable, default classpath)")
	f.StringArrayVarP(&o.against, "against-classpath", "a", nil,
		"Classpath satisfying dependencies without being analyzed (repeatable)")
	f.StringVarP(&o.providedDir, "provided-classpath-dir", "p", "",
		"Directory or zip of provided jars (default providedClasspath)")
	f.StringSliceVarP(&o.entryPoints, "entry-point", "e", nil,
		"Entry class or pattern (repeatable, default *)")
	f.StringVarP(&o.resultFile, "result-file", "r", "", "Result file (default result.txt)")
	f.StringVarP(&o.outputFormat, "output-format", "t", "", "Result format: text, xml or json")
	f.BoolVar(&o.cleanCache, "clean-cache", false, "Remove the cache before running")
	f.StringVarP(&o.repoURL, "repository-url", "u", "", "URL of the repository archive (http, https, cos or file)")
	f.StringVarP(&o.repoDir, "repository-dir", "d", "", "Repository directory")
	f.StringVarP(&o.repoFile, "repository-file", "f", "", "Repository archive (zip or jar)")
	f.BoolVar(&o.persist, "persist", false, "Store the run in the database")
	f.BoolVar(&o.graph, "graph", false, "Export the dependency graph to Neo4j")
	f.BoolVar(&o.summary, "summary", false, "Print a summary table")
	f.StringSliceVar(&o.owned, "owned-prefix", nil,
		"Package prefix counted as project code in the summary (repeatable)")
}

// apply copies the flags set on the command line into c.
func (o *discoverOptions) apply(flags *pflag.FlagSet, c *config.Config) {
	d := &c.Discovery
	if flags.Changed("project-dir") {
		d.ProjectDir = o.projectDir
	}
	if flags.Changed("classpath") {
		d.Classpath = o.classpath
	}
	if flags.Changed("against-classpath") {
		d.AgainstClasspath = o.against
	}
	if flags.Changed("provided-classpath-dir") {
		d.ProvidedClasspathDir = o.providedDir
	}
	if flags.Changed("entry-point") {
		d.EntryPoints = o.entryPoints
	}
	if flags.Changed("result-file") {
		d.OutputFile = o.resultFile
	}
	if flags.Changed("output-format") {
		d.OutputFormat = o.outputFormat
	}
	if flags.Changed("clean-cache") {
		c.Cache.Clean = o.cleanCache
	}
	if flags.Changed("repository-url") || flags.Changed("repository-dir") || flags.Changed("repository-file") {
		c.Repository = config.RepositoryConfig{URL: o.repoURL, Dir: o.repoDir, File: o.repoFile}
	}
	if flags.Changed("persist") {
		c.Database.Enabled = o.persist
	}
	if flags.Changed("graph") {
		c.Graph.Enabled = o.graph
	}
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if err := requireConfig(); err != nil {
		return err
	}
	log := GetLogger()

	discoverOpts.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	req, err := service.RequestFromConfig(cfg)
	if err != nil {
		return err
	}
	log.Debug("Request: %s", req)

	svc := service.New(cfg, service.WithLogger(log), service.WithStdout(cmd.OutOrStdout()))
	outcome, err := svc.Run(cmd.Context(), req)
	if outcome == nil {
		return err
	}

	console := newConsole(cmd)
	console.Diagnostics(outcome.Report.Diagnostics)
	if discoverOpts.summary {
		classifier := filter.NewClassifier()
		for _, prefix := range discoverOpts.owned {
			classifier.AddOwnedPrefix(prefix)
		}
		if sumErr := console.Summary(outcome.Report, classifier); sumErr != nil {
			log.Warn("Failed to print summary: %v", sumErr)
		}
	} else {
		formatter.LogSummary(outcome.Report, log)
	}

	if apperrors.IsExportError(err) && outcome.OutputPath != "" {
		log.Warn("Result kept in %s", outcome.OutputPath)
	}

	exitCode = outcome.ExitCode()
	return err
}
