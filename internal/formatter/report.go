package formatter

import (
	"github.com/depdiscover/internal/discovery"
	"github.com/depdiscover/pkg/model"
)

// BuildReport converts a run outcome into its serializable report. res may
// be nil when the run failed; run metadata is left to the caller except for
// the counts.
func BuildReport(res *discovery.Result, diag *discovery.Diagnostics) *model.Report {
	report := &model.Report{}
	if diag != nil {
		for _, n := range diag.Items() {
			report.Diagnostics = append(report.Diagnostics, model.Notification{
				Code:    n.Kind.Code(),
				Kind:    n.Kind.String(),
				Message: n.Message,
				Fatal:   n.Fatal(),
			})
			if n.Fatal() {
				report.Run.Counts.Errors++
			} else {
				report.Run.Counts.Warnings++
			}
		}
	}
	if res == nil {
		return report
	}

	report.Requirements = Requirements(res)
	report.Run.Counts = countsOf(res, report.Run.Counts)

	for _, d := range res.Types {
		report.Dependencies = append(report.Dependencies, model.Dependency{
			Kind:      model.KindType,
			Owner:     d.Name,
			Printable: ClassName(d.Name),
			State:     d.State().String(),
			Callers:   signatures(d.Callers()),
			Users:     d.Users(),
		})
	}
	for _, d := range res.Methods {
		report.Dependencies = append(report.Dependencies, model.Dependency{
			Kind:       model.KindMethod,
			Owner:      d.Key.Owner,
			Name:       d.Key.Name,
			Descriptor: d.Key.Descriptor,
			Printable:  MethodName(d.Key.Owner, d.Key.Name, d.Key.Descriptor),
			State:      d.State().String(),
			Native:     d.Native,
			Interface:  d.Key.Interface,
			Callers:    signatures(d.Callers()),
		})
	}
	for _, d := range res.Fields {
		report.Dependencies = append(report.Dependencies, model.Dependency{
			Kind:       model.KindField,
			Owner:      d.Key.Owner,
			Name:       d.Key.Name,
			Descriptor: d.Key.Type,
			Printable:  FieldName(d.Key.Owner, d.Key.Name),
			State:      d.State().String(),
			Callers:    signatures(d.Callers()),
		})
	}
	return report
}

func countsOf(res *discovery.Result, c model.Counts) model.Counts {
	c.EntryClasses = res.Stats.EntryClasses
	c.AnalyzedMethods = res.Stats.Analyzed
	c.Types = len(res.Types)
	c.Methods = len(res.Methods)
	c.Fields = len(res.Fields)
	c.MissingTypes = len(res.MissingTypes())
	c.MissingMethods = len(res.MissingMethods())
	c.MissingFields = len(res.MissingFields())
	c.NativeMethods = len(res.NativeMethods())
	return c
}

func signatures(in []discovery.MethodSignature) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.String()
	}
	return out
}
