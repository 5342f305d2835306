package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatus_String(t *testing.T) {
	tests := []struct {
		status   RunStatus
		expected string
	}{
		{RunStatusPending, "pending"},
		{RunStatusRunning, "running"},
		{RunStatusCompleted, "completed"},
		{RunStatusFailed, "failed"},
		{RunStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
			if tt.expected != "unknown" {
				assert.Equal(t, tt.status, ParseRunStatus(tt.expected))
			}
		})
	}
	assert.Equal(t, RunStatusPending, ParseRunStatus("bogus"))
}

func TestRun_Duration(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := NewRun("r-1", created)
	assert.Equal(t, RunStatusPending, run.Status)
	assert.Zero(t, run.Duration())
	assert.False(t, run.IsFinished())

	begin := created.Add(time.Second)
	end := begin.Add(1500 * time.Millisecond)
	run.BeginTime = &begin
	run.EndTime = &end
	run.Status = RunStatusFailed
	assert.Equal(t, 1500*time.Millisecond, run.Duration())
	assert.True(t, run.IsFinished())
}

func TestCounts_Required(t *testing.T) {
	c := Counts{Types: 10, MissingTypes: 2, MissingMethods: 3, MissingFields: 1, NativeMethods: 4}
	assert.Equal(t, 10, c.Required())
}

func TestDependency_Key(t *testing.T) {
	tests := []struct {
		dep      Dependency
		expected string
	}{
		{Dependency{Kind: KindType, Owner: "a/B"}, "type:a/B"},
		{Dependency{Kind: KindMethod, Owner: "a/B", Name: "run", Descriptor: "()V"}, "method:a/B.run()V"},
		{Dependency{Kind: KindField, Owner: "a/B", Name: "n", Descriptor: "I"}, "field:a/B.n:I"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.dep.Key())
	}
}

func TestReport_RoundTripAndFilter(t *testing.T) {
	report := &Report{
		Run: Run{RunUUID: "r-1", Status: RunStatusCompleted, Counts: Counts{Types: 2}},
		Requirements: Requirements{
			Types:   []string{"x.Y"},
			Natives: []string{"a.B.nat()void"},
		},
		Dependencies: []Dependency{
			{Kind: KindType, Owner: "x/Y", Printable: "x.Y", State: "not_found"},
			{Kind: KindType, Owner: "a/B", Printable: "a.B", State: "primary"},
			{Kind: KindMethod, Owner: "a/B", Name: "nat", Descriptor: "()V", State: "primary", Native: true},
		},
		Diagnostics: []Notification{{Code: "M1", Kind: "PATH_DOES_NOT_EXIST", Message: "Path x does not exist"}},
	}

	data, err := report.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalReport(data)
	require.NoError(t, err)
	assert.Equal(t, report, decoded)
	assert.Equal(t, 2, decoded.Requirements.Len())

	assert.Len(t, report.Filter("", false), 3)
	assert.Len(t, report.Filter(KindType, false), 2)
	missing := report.Filter(KindType, true)
	require.Len(t, missing, 1)
	assert.Equal(t, "x/Y", missing[0].Owner)
	assert.Empty(t, report.Filter(KindField, false))

	_, err = UnmarshalReport([]byte("{"))
	assert.Error(t, err)
}
