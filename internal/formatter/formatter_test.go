package formatter

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdiscover/internal/classpath"
	"github.com/depdiscover/internal/discovery"
	"github.com/depdiscover/internal/testutil"
	"github.com/depdiscover/pkg/model"
)

func sampleRequirements() model.Requirements {
	return model.Requirements{
		Types:   []string{"com.ext.Missing", "com.ext.Other[]"},
		Fields:  []string{"com.ext.Missing.count"},
		Methods: []string{"com.ext.Missing.Missing(int)void", "com.ext.Missing.run()java.lang.String"},
		Natives: []string{"java.lang.Object.clone()java.lang.Object"},
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, model.Requirements{
		Types:   []string{"com/ext/Missing", "[Lcom/ext/Other;"},
		Fields:  []string{"com/ext/Missing.count"},
		Methods: []string{"com/ext/Missing.<init>(I)V"},
		Natives: []string{"java/lang/Object.clone()Ljava/lang/Object;"},
	}))

	testutil.AssertLines(t, []string{
		"com/ext/Missing",
		"[Lcom/ext/Other;",
		"com/ext/Missing.count",
		"com/ext/Missing.<init>(I)V",
		"[NATIVE] java/lang/Object.clone()Ljava/lang/Object;",
	}, buf.String())
}

func TestTextWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, model.Requirements{}))
	assert.Empty(t, buf.String())
}

func TestXMLWriter(t *testing.T) {
	var buf bytes.Buffer
	req := sampleRequirements()
	req.Fields = append(req.Fields, `odd.Name.a"b`)
	require.NoError(t, (&XMLWriter{}).Write(&buf, req))

	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>
<require>
	<type name="com.ext.Missing"/>
	<type name="com.ext.Other[]"/>
	<field name="com.ext.Missing.count"/>
	<field name="odd.Name.a&#34;b"/>
	<method name="com.ext.Missing.Missing(int)void"/>
	<method name="com.ext.Missing.run()java.lang.String"/>
	<native name="java.lang.Object.clone()java.lang.Object"/>
</require>
`, buf.String())
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, sampleRequirements()))

	testutil.AssertJSONEqual(t, `{
		"require": {
			"type": [{"name": "com.ext.Missing"}, {"name": "com.ext.Other[]"}],
			"field": [{"name": "com.ext.Missing.count"}],
			"method": [
				{"name": "com.ext.Missing.Missing(int)void"},
				{"name": "com.ext.Missing.run()java.lang.String"}
			],
			"native": [{"name": "java.lang.Object.clone()java.lang.Object"}]
		}
	}`, buf.String())
}

func TestJSONWriter_OmitsEmptyGroups(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, model.Requirements{Types: []string{"a.B"}}))
	testutil.AssertJSONEqual(t, `{"require": {"type": [{"name": "a.B"}]}}`, buf.String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		format   string
		expected DependencyWriter
		known    bool
	}{
		{"text", &TextWriter{}, true},
		{"TXT", &TextWriter{}, true},
		{"xml", &XMLWriter{}, true},
		{" Json ", &JSONWriter{}, true},
		{"yaml", &TextWriter{}, false},
		{"", &TextWriter{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.IsType(t, tt.expected, r.Get(tt.format))
			assert.Equal(t, tt.known, r.Has(tt.format))
		})
	}
}

// runSample analyzes a small program whose only entry class references a
// missing library and a native method.
func runSample(t *testing.T) (*discovery.Result, *discovery.Diagnostics) {
	t.Helper()
	primaryDir := testutil.WriteClassDir(t, t.TempDir(), testutil.ClassSet(
		testutil.NewClass("app/Main").
			Method(testutil.AccPublic|testutil.AccStatic, "main", "([Ljava/lang/String;)V").
			New("ext/Gone").
			InvokeSpecial("ext/Gone", "<init>", "(I)V").
			GetStatic("ext/Gone", "LIMIT", "J").
			InvokeVirtual("[I", "clone", "()Ljava/lang/Object;").
			Done(),
	))
	secondaryDir := testutil.WriteClassDir(t, t.TempDir(), testutil.ClassSet(testutil.JDKObject()))

	res, diag, err := discovery.NewEngine(classpath.NewFinder(nil)).Run(context.Background(), discovery.Request{
		Primary:     classpath.New("primary", []string{primaryDir}),
		Secondary:   classpath.New("secondary", []string{secondaryDir, "/does/not/exist"}),
		EntryPoints: []string{"app.Main"},
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res, diag
}

func TestRequirements(t *testing.T) {
	res, _ := runSample(t)

	req := Requirements(res)
	assert.Equal(t, []string{"ext.Gone"}, req.Types)
	assert.Equal(t, []string{"ext.Gone.LIMIT"}, req.Fields)
	assert.Equal(t, []string{"ext.Gone.Gone(int)void"}, req.Methods)
	assert.Equal(t, []string{"java.lang.Object.clone()java.lang.Object"}, req.Natives)

	internal := RequirementsNamed(res, InternalNames)
	assert.Equal(t, []string{"ext/Gone"}, internal.Types)
	assert.Equal(t, []string{"ext/Gone.LIMIT"}, internal.Fields)
	assert.Equal(t, []string{"ext/Gone.<init>(I)V"}, internal.Methods)
	assert.Equal(t, []string{"java/lang/Object.clone()Ljava/lang/Object;"}, internal.Natives)

	assert.Zero(t, Requirements(nil).Len())
}

func TestRegistry_Write(t *testing.T) {
	res, _ := runSample(t)
	r := NewRegistry()

	var text bytes.Buffer
	require.NoError(t, r.Write(&text, "bogus", res))
	testutil.AssertLines(t, []string{
		"ext/Gone",
		"ext/Gone.LIMIT",
		"ext/Gone.<init>(I)V",
		"[NATIVE] java/lang/Object.clone()Ljava/lang/Object;",
	}, text.String())

	var xml bytes.Buffer
	require.NoError(t, r.Write(&xml, FormatXML, res))
	assert.Contains(t, xml.String(), `<method name="ext.Gone.Gone(int)void"/>`)
	assert.Contains(t, xml.String(), `<native name="java.lang.Object.clone()java.lang.Object"/>`)

	var js bytes.Buffer
	require.NoError(t, r.Write(&js, FormatJSON, res))
	assert.Contains(t, js.String(), `"ext.Gone.LIMIT"`)
}

func TestBuildReport(t *testing.T) {
	res, diag := runSample(t)

	report := BuildReport(res, diag)
	assert.Equal(t, model.Counts{
		EntryClasses:    1,
		AnalyzedMethods: 1,
		Types:           2,
		Methods:         2,
		Fields:          1,
		MissingTypes:    1,
		MissingMethods:  1,
		MissingFields:   1,
		NativeMethods:   1,
		Warnings:        1,
	}, report.Run.Counts)
	assert.Equal(t, []model.Notification{{
		Code: "M1", Kind: "PATH_DOES_NOT_EXIST", Message: "Path /does/not/exist does not exist",
	}}, report.Diagnostics)
	assert.Len(t, report.Dependencies, 5)

	gone := report.Filter(model.KindMethod, true)
	require.Len(t, gone, 1)
	assert.Equal(t, model.Dependency{
		Kind:       model.KindMethod,
		Owner:      "ext/Gone",
		Name:       "<init>",
		Descriptor: "(I)V",
		Printable:  "ext.Gone.Gone(int)void",
		State:      "not_found",
		Callers:    []string{"app/Main.main([Ljava/lang/String;)V"},
	}, gone[0])

	object := report.Filter(model.KindType, false)[1]
	assert.Equal(t, "java/lang/Object", object.Owner)
	assert.Equal(t, []string{"app/Main"}, object.Users)
}

func TestBuildReport_FailedRun(t *testing.T) {
	diag := discovery.NewDiagnostics()
	diag.MissingClasspath()

	report := BuildReport(nil, diag)
	assert.Empty(t, report.Dependencies)
	assert.Equal(t, 1, report.Run.Counts.Errors)
	require.Len(t, report.Diagnostics, 1)
	assert.True(t, report.Diagnostics[0].Fatal)
}
