package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/roadmap-survey/internal/roadmap"
)

func testRoadmap() *roadmap.Roadmap {
	return roadmap.FromSeed(roadmap.Seed{
		{Barrier: "Affordability", Actions: []string{"MaaS integration", "Reduced parking requirements"}},
		{Barrier: "Equity", Actions: []string{"Targeted outreach", "Low-income pass"}},
	})
}

func TestCollectFollowsRoadmapOrder(t *testing.T) {
	rm := testRoadmap()
	sel := Collect(rm, map[string][]string{
		"Equity":        {"Low-income pass", "Targeted outreach", "Low-income pass"},
		"Affordability": {"Reduced parking requirements"},
		"Unknown":       {"Anything"},
	})
	assert.Equal(t, Selection{
		{Barrier: "Affordability", Action: "Reduced parking requirements"},
		{Barrier: "Equity", Action: "Low-income pass"},
		{Barrier: "Equity", Action: "Targeted outreach"},
	}, sel)
}

func TestCollectDropsActionsNotInRoadmap(t *testing.T) {
	sel := Collect(testRoadmap(), map[string][]string{"Equity": {"Free rides"}})
	assert.Empty(t, sel)
}

func TestCollectNothingCheckedIsRejected(t *testing.T) {
	sel := Collect(testRoadmap(), nil)
	assert.Empty(t, sel)

	err := Validate(VariantAction, "Jane/CityDOT", sel)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "selection", verr.Field)
}

func TestValidateName(t *testing.T) {
	sel := Selection{{Barrier: "Equity", Action: "Low-income pass"}}
	err := Validate(VariantAction, "  ", sel)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	assert.NoError(t, Validate(VariantAction, "Jane", sel))
	assert.NoError(t, Validate(VariantOpportunity, "Jane", nil))
	assert.Error(t, Validate(VariantOpportunity, "", nil))
}

func TestBuildScenario(t *testing.T) {
	rec := Build("Jane/CityDOT", Selection{{Barrier: "Equity", Action: "Low-income pass"}}, "n/a")
	assert.Equal(t, []string{"Name", "Barrier", "Action", "Comments"}, rec.Columns)
	assert.Equal(t, [][]string{{"Jane/CityDOT", "Equity", "Low-income pass", "n/a"}}, rec.Rows)
}

func TestBuildAllIgnoresSelection(t *testing.T) {
	rm := testRoadmap()
	rm.AddBarrier("Safety", "Lighting")
	rec := BuildAll("Jane", rm, "ok")
	assert.Equal(t, []string{"Barrier", "Opportunity", "Name", "Comments"}, rec.Columns)
	require.Len(t, rec.Rows, 5)
	assert.Equal(t, []string{"Safety", "Lighting", "Jane", "ok"}, rec.Rows[4])
}

func TestCSVRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"comma, separated",
		`say "hello"`,
		"multi\nline",
		"a\r\nb",
		"",
		"  padded  ",
		"ünïcødé",
	}
	for n := 0; n <= len(values); n++ {
		var sel Selection
		for i := 0; i < n; i++ {
			sel = append(sel, roadmap.Pair{Barrier: values[i], Action: values[(i+1)%len(values)]})
		}
		rec := Build(`Doe, "J"`, sel, values[n%len(values)])
		data, err := rec.MarshalCSV()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "Name,Barrier,Action,Comments\n"))

		back, err := ParseCSV(data)
		require.NoError(t, err, "rows=%d", n)
		assert.Equal(t, rec, back, "rows=%d", n)
	}
}

func TestBuildFoldsCRLF(t *testing.T) {
	rec := Build("Jane", Selection{{Barrier: "Equity", Action: "Pass"}}, "line one\r\nline two")
	assert.Equal(t, "line one\nline two", rec.Rows[0][3])
	data, err := rec.MarshalCSV()
	require.NoError(t, err)
	back, err := ParseCSV(data)
	require.NoError(t, err)
	assert.Equal(t, rec, back)

	rm := testRoadmap()
	all := BuildAll("Jane", rm, "a\r\nb")
	require.NotEmpty(t, all.Rows)
	assert.Equal(t, "a\nb", all.Rows[0][3])
}

func TestParseCSVRequiresHeader(t *testing.T) {
	_, err := ParseCSV(nil)
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Jane_response.csv", FileName("Jane"))
	assert.Equal(t, "Jane-CityDOT_response.csv", FileName("Jane/CityDOT"))
	assert.Equal(t, "a-b_response.csv", FileName(` a\b `))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantAction, v)
	v, err = ParseVariant(" Opportunity ")
	require.NoError(t, err)
	assert.Equal(t, VariantOpportunity, v)
	assert.Equal(t, "Barrier-Opportunity Survey", v.Title())
	_, err = ParseVariant("poll")
	require.Error(t, err)
}

type remoteError struct {
	code int
	body string
}

func (e *remoteError) Error() string { return fmt.Sprintf("%d: %s", e.code, e.body) }

type fakeSink struct {
	err   error
	calls []Submission
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Persist(_ context.Context, sub Submission) (Receipt, error) {
	f.calls = append(f.calls, sub)
	if f.err != nil {
		return Receipt{}, f.err
	}
	return Receipt{Sink: "fake", Location: "mem://" + sub.FileName}, nil
}

func TestSubmitterSucceeds(t *testing.T) {
	sink := &fakeSink{}
	var states []State
	sub := NewSubmitter(VariantAction, sink, WithObserver(func(s State) { states = append(states, s) }))

	out, err := sub.Submit(context.Background(), Request{
		Name:      "Jane/CityDOT",
		Comments:  "n/a",
		Selection: Selection{{Barrier: "Equity", Action: "Low-income pass"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, "mem://Jane-CityDOT_response.csv", out.Receipt.Location)
	assert.Equal(t, []State{StateValidating, StateBuilding, StateSerializing, StatePersisting, StateSucceeded}, states)

	require.Len(t, sink.calls, 1)
	back, err := ParseCSV(sink.calls[0].CSV)
	require.NoError(t, err)
	assert.Equal(t, out.Record, back)
}

func TestSubmitterTrimsName(t *testing.T) {
	sink := &fakeSink{}
	sub := NewSubmitter(VariantAction, sink)
	out, err := sub.Submit(context.Background(), Request{
		Name:      "  Jane  ",
		Selection: Selection{{Barrier: "Equity", Action: "Low-income pass"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", out.Record.Rows[0][0])
	require.Len(t, sink.calls, 1)
	assert.Equal(t, "Jane", sink.calls[0].Name)
	assert.Equal(t, "Jane_response.csv", sink.calls[0].FileName)
}

func TestSubmitterRejectsWithoutPersisting(t *testing.T) {
	sink := &fakeSink{}
	sub := NewSubmitter(VariantAction, sink)
	out, err := sub.Submit(context.Background(), Request{Name: "Jane"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, StateIdle, sub.State())
	assert.Empty(t, sink.calls)
}

func TestSubmitterFailureAllowsResubmit(t *testing.T) {
	sink := &fakeSink{err: &remoteError{code: 422, body: `{"message":"sha wasn't supplied"}`}}
	sub := NewSubmitter(VariantAction, sink)
	rm := testRoadmap()
	before := rm.Entries()
	req := Request{
		Name:      "Jane",
		Selection: Collect(rm, map[string][]string{"Equity": {"Low-income pass"}}),
		Roadmap:   rm,
	}

	out, err := sub.Submit(context.Background(), req)
	var rerr *remoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 422, rerr.code)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, StateIdle, sub.State())
	assert.Equal(t, before, rm.Entries())

	sink.err = nil
	out2, err := sub.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, out.Record, out2.Record)
	assert.Len(t, sink.calls, 2)
}

func TestSubmitterOpportunitySubmitsWholeRoadmap(t *testing.T) {
	sink := &fakeSink{}
	sub := NewSubmitter(VariantOpportunity, sink)
	out, err := sub.Submit(context.Background(), Request{Name: "Jane", Comments: "scope", Roadmap: testRoadmap()})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Record.Len())
	assert.Equal(t, "Opportunity", out.Record.Columns[1])
}
