package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdiscover/pkg/filter"
	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/utils"
)

func TestConsole_Diagnostics(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, false)

	c.Diagnostics([]model.Notification{
		{Code: "M1", Message: "Path x does not exist"},
		{Code: "M5", Message: "No class matching 'zzz' in classpath 'lib'", Fatal: true},
	})

	assert.Empty(t, out.String())
	assert.Equal(t, "[M1] - Path x does not exist\n[M5] - No class matching 'zzz' in classpath 'lib'\n", errOut.String())
}

func TestConsole_Summary(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, &out, false)
	report := &model.Report{
		Run: model.Run{Counts: model.Counts{
			EntryClasses: 2, AnalyzedMethods: 7, Types: 5, Methods: 9, Fields: 3,
			MissingTypes: 3, MissingMethods: 4, MissingFields: 1, NativeMethods: 2,
		}},
		Dependencies: []model.Dependency{
			{Kind: model.KindType, Owner: "javax/microedition/Foo", State: "not_found"},
			{Kind: model.KindType, Owner: "org/slf4j/Logger", State: "not_found"},
			{Kind: model.KindType, Owner: "com/acme/Thing", State: "not_found"},
			{Kind: model.KindType, Owner: "app/Main", State: "primary"},
		},
	}

	require.NoError(t, c.Summary(report, filter.NewClassifier()))

	text := out.String()
	assert.Contains(t, text, "Discovery Summary")
	assert.Contains(t, text, "Missing Types by Origin")
	for _, want := range []string{"Analyzed methods", "Native methods", "jdk", "framework", "application"} {
		assert.Contains(t, strings.ToLower(text), strings.ToLower(want))
	}
	assert.NotContains(t, text, "owned")
}

func TestConsole_Runs(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, &out, false)
	begin := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := begin.Add(2 * time.Second)

	require.NoError(t, c.Runs([]model.Run{{
		RunUUID:     "run-1",
		Status:      model.RunStatusCompleted,
		EntryPoints: []string{"app.*"},
		CreateTime:  begin,
		BeginTime:   &begin,
		EndTime:     &end,
		Counts:      model.Counts{MissingTypes: 2, NativeMethods: 1},
	}}))

	text := out.String()
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "completed")
	assert.Contains(t, text, "2026-03-01 10:00:00")
	assert.Contains(t, text, "app.*")
	assert.Contains(t, text, "2s")
}

func TestConsole_Dependencies(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, &out, false)

	require.NoError(t, c.Dependencies([]model.Dependency{
		{Kind: model.KindMethod, Printable: "a.B.nat()void", State: "primary", Native: true, Callers: []string{"x", "y"}},
	}))
	assert.Contains(t, out.String(), "a.B.nat()void")
	assert.Contains(t, out.String(), "native")
}

func TestLogSummary(t *testing.T) {
	var buf bytes.Buffer
	log := utils.NewDefaultLogger(utils.LevelInfo, &buf)

	LogSummary(&model.Report{Run: model.Run{
		RunUUID: "run-9",
		Counts:  model.Counts{Types: 4, MissingTypes: 1, Errors: 1},
	}}, log)

	text := buf.String()
	assert.Contains(t, text, "=== Discovery Results ===")
	assert.Contains(t, text, "run-9")
	assert.Contains(t, text, "Required:         1 types, 0 methods, 0 fields, 0 natives")
	assert.Contains(t, text, "1 errors, 0 warnings")
}
