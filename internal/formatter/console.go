package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/depdiscover/pkg/filter"
	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/utils"
)

// Console prints human-oriented output: diagnostics on the error stream,
// summaries and stored runs as tables.
type Console struct {
	out     io.Writer
	errOut  io.Writer
	colored bool
}

// NewConsole creates a console. Colors are only used when colored is set.
func NewConsole(out, errOut io.Writer, colored bool) *Console {
	return &Console{out: out, errOut: errOut, colored: colored}
}

// Diagnostics prints each notification on its own line, fatal ones in red
// and warnings in yellow.
func (c *Console) Diagnostics(items []model.Notification) {
	for _, n := range items {
		line := fmt.Sprintf("[%s] - %s", n.Code, n.Message)
		switch {
		case !c.colored:
			fmt.Fprintln(c.errOut, line)
		case n.Fatal:
			color.New(color.FgRed).Fprintln(c.errOut, line)
		default:
			color.New(color.FgYellow).Fprintln(c.errOut, line)
		}
	}
}

// Summary prints the counts of a report and the missing types grouped by
// origin category.
func (c *Console) Summary(report *model.Report, classifier *filter.Classifier) error {
	counts := report.Run.Counts
	c.title("Discovery Summary")
	rows := [][]string{
		{"Entry classes", strconv.Itoa(counts.EntryClasses), ""},
		{"Analyzed methods", strconv.Itoa(counts.AnalyzedMethods), ""},
		{"Types", strconv.Itoa(counts.Types), c.missing(counts.MissingTypes)},
		{"Methods", strconv.Itoa(counts.Methods), c.missing(counts.MissingMethods)},
		{"Fields", strconv.Itoa(counts.Fields), c.missing(counts.MissingFields)},
		{"Native methods", strconv.Itoa(counts.NativeMethods), ""},
	}
	if err := c.table([]string{"Dependency", "Count", "Missing"}, rows); err != nil {
		return err
	}

	missing := report.Filter(model.KindType, true)
	if len(missing) == 0 || classifier == nil {
		return nil
	}
	owners := make([]string, len(missing))
	for i, d := range missing {
		owners[i] = d.Owner
	}
	byCategory := classifier.Count(owners)
	var catRows [][]string
	for _, cat := range filter.Categories {
		if n := byCategory[cat]; n > 0 {
			catRows = append(catRows, []string{cat.String(), strconv.Itoa(n)})
		}
	}
	c.title("Missing Types by Origin")
	return c.table([]string{"Origin", "Missing"}, catRows)
}

// Runs prints stored runs, newest first as given.
func (c *Console) Runs(runs []model.Run) error {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunUUID,
			c.status(r.Status),
			r.CreateTime.Format("2006-01-02 15:04:05"),
			strings.Join(r.EntryPoints, ","),
			strconv.Itoa(r.Counts.Required()),
			r.Duration().String(),
		})
	}
	c.title("Runs")
	return c.table([]string{"Run", "Status", "Created", "Entry Points", "Required", "Duration"}, rows)
}

// Dependencies prints dependency rows.
func (c *Console) Dependencies(deps []model.Dependency) error {
	rows := make([][]string, 0, len(deps))
	for _, d := range deps {
		native := ""
		if d.Native {
			native = "native"
		}
		rows = append(rows, []string{string(d.Kind), d.Printable, d.State, native, strconv.Itoa(len(d.Callers))})
	}
	c.title("Dependencies")
	return c.table([]string{"Kind", "Name", "State", "Flags", "Callers"}, rows)
}

func (c *Console) title(s string) {
	if c.colored {
		color.New(color.Bold).Fprintln(c.out, s)
	} else {
		fmt.Fprintln(c.out, s)
	}
	fmt.Fprintln(c.out, strings.Repeat("=", len(s)))
}

func (c *Console) missing(n int) string {
	s := strconv.Itoa(n)
	if c.colored && n > 0 {
		return color.RedString(s)
	}
	return s
}

func (c *Console) status(s model.RunStatus) string {
	if !c.colored {
		return s.String()
	}
	switch s {
	case model.RunStatusCompleted:
		return color.GreenString(s.String())
	case model.RunStatusFailed:
		return color.RedString(s.String())
	default:
		return color.YellowString(s.String())
	}
}

func (c *Console) table(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(c.out,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)
	table.Header(headers)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintln(c.out)
	return nil
}

// LogSummary writes a short run summary through the logger.
func LogSummary(report *model.Report, log utils.Logger) {
	counts := report.Run.Counts
	log.Info("=== Discovery Results ===")
	if report.Run.RunUUID != "" {
		log.Info("Run:              %s", report.Run.RunUUID)
	}
	log.Info("Entry classes:    %d", counts.EntryClasses)
	log.Info("Analyzed methods: %d", counts.AnalyzedMethods)
	log.Info("Dependencies:     %d types, %d methods, %d fields",
		counts.Types, counts.Methods, counts.Fields)
	log.Info("Required:         %d types, %d methods, %d fields, %d natives",
		counts.MissingTypes, counts.MissingMethods, counts.MissingFields, counts.NativeMethods)
	if counts.Warnings > 0 || counts.Errors > 0 {
		log.Info("Diagnostics:      %d errors, %d warnings", counts.Errors, counts.Warnings)
	}
}
