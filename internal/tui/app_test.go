package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/roadmap-survey/internal/logbook"
	"github.com/kingrea/roadmap-survey/internal/roadmap"
	"github.com/kingrea/roadmap-survey/internal/sink"
	"github.com/kingrea/roadmap-survey/internal/survey"
)

type recordingSink struct {
	err   error
	calls []survey.Submission
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Persist(_ context.Context, sub survey.Submission) (survey.Receipt, error) {
	r.calls = append(r.calls, sub)
	if r.err != nil {
		return survey.Receipt{}, r.err
	}
	return survey.Receipt{Sink: r.Name(), Location: sub.FileName}, nil
}

func testSeed() roadmap.Seed {
	return roadmap.Seed{
		{Barrier: "Equity", Actions: []string{"Targeted outreach"}},
		{Barrier: "Operational Challenges", Actions: []string{"Placing vehicles in TOD"}},
	}
}

func newTestApp(t *testing.T, variant survey.Variant, s survey.Sink) *App {
	t.Helper()
	lb, err := logbook.New(filepath.Join(t.TempDir(), "logs", "journey.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	return NewApp(Params{
		Variant:   variant,
		Seed:      testSeed(),
		Submitter: survey.NewSubmitter(variant, s, survey.WithLogbook(lb)),
		Logbook:   lb,
	})
}

// press sends each key to the app and returns the command produced by the
// last one.
func press(t *testing.T, app *App, keys ...tea.KeyMsg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		model, next := app.Update(k)
		if model != app {
			t.Fatalf("unexpected model %T", model)
		}
		cmd = next
	}
	return cmd
}

func typeText(t *testing.T, app *App, text string) {
	t.Helper()
	press(t, app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func focusOn(t *testing.T, app *App, target field) {
	t.Helper()
	for i := 0; i < 10 && app.focus != target; i++ {
		press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	}
	if app.focus != target {
		t.Fatalf("could not reach field %d", target)
	}
}

// submit presses ctrl+s and feeds the resulting message back to the app.
func submit(t *testing.T, app *App) {
	t.Helper()
	cmd := press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatalf("expected submit command")
	}
	msg := cmd()
	if _, ok := msg.(submitFinishedMsg); !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if _, next := app.Update(msg); next != nil {
		t.Fatalf("expected no follow-up command")
	}
}

var (
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestAddActionToExistingBarrier(t *testing.T) {
	app := newTestApp(t, survey.VariantAction, &recordingSink{})
	focusOn(t, app, fieldExisting)
	press(t, app, keyRight)
	if got := app.selectedExisting(); got != "Equity" {
		t.Fatalf("expected Equity selected, got %q", got)
	}
	focusOn(t, app, fieldAction)
	typeText(t, app, "Low-income pass")
	press(t, app, keyEnter)

	actions, err := app.Roadmap().ActionsFor("Equity")
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if strings.Join(actions, ",") != "Targeted outreach,Low-income pass" {
		t.Fatalf("unexpected actions %v", actions)
	}
	if app.statusMsg != "Barrier and/or Action added!" {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if app.actionInput.Value() != "" {
		t.Fatalf("expected action input cleared")
	}

	typeText(t, app, "Low-income pass")
	press(t, app, keyEnter)
	actions, _ = app.Roadmap().ActionsFor("Equity")
	if len(actions) != 2 {
		t.Fatalf("duplicate action added: %v", actions)
	}
	if !strings.Contains(app.statusMsg, "Already listed") {
		t.Fatalf("expected duplicate notice, got %q", app.statusMsg)
	}
}

func TestAddNewBarrierWinsOverSelection(t *testing.T) {
	app := newTestApp(t, survey.VariantAction, &recordingSink{})
	focusOn(t, app, fieldExisting)
	press(t, app, keyRight)
	focusOn(t, app, fieldNewBarrier)
	typeText(t, app, "Parking")
	focusOn(t, app, fieldAdd)
	press(t, app, keyEnter)

	barriers := app.Roadmap().Barriers()
	if barriers[len(barriers)-1] != "Parking" {
		t.Fatalf("expected Parking appended, got %v", barriers)
	}
	equity, _ := app.Roadmap().ActionsFor("Equity")
	if len(equity) != 1 {
		t.Fatalf("existing barrier should be untouched, got %v", equity)
	}
}

func TestSubmitWithoutSelectionIsRejected(t *testing.T) {
	rec := &recordingSink{}
	app := newTestApp(t, survey.VariantAction, rec)
	typeText(t, app, "Jane/CityDOT")
	submit(t, app)

	if app.statusMsg != "Please select at least one action before submitting." {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if app.statusKind != statusError {
		t.Fatalf("expected error status")
	}
	if len(rec.calls) != 0 {
		t.Fatalf("sink must not be called on rejection")
	}
}

func TestSubmitCheckedActions(t *testing.T) {
	rec := &recordingSink{}
	app := newTestApp(t, survey.VariantAction, rec)
	typeText(t, app, "Jane/CityDOT")
	focusOn(t, app, fieldChecklist)
	press(t, app, keyDown, keySpace)

	submit(t, app)
	if app.statusKind != statusSuccess {
		t.Fatalf("expected success, got %q", app.statusMsg)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one persist call, got %d", len(rec.calls))
	}
	got := rec.calls[0]
	if got.FileName != "Jane-CityDOT_response.csv" {
		t.Fatalf("unexpected file name %s", got.FileName)
	}
	if app.submitted == nil || len(app.submitted.Rows) != 1 {
		t.Fatalf("expected one submitted row, got %+v", app.submitted)
	}
	row := strings.Join(app.submitted.Rows[0], "|")
	if row != "Jane/CityDOT|Operational Challenges|Placing vehicles in TOD|" {
		t.Fatalf("unexpected row %s", row)
	}
	if !strings.Contains(app.View(), "Your Submission") {
		t.Fatalf("view should show the submitted rows")
	}
}

func TestToggleTwiceUnchecks(t *testing.T) {
	app := newTestApp(t, survey.VariantAction, &recordingSink{})
	focusOn(t, app, fieldChecklist)
	press(t, app, keySpace, keySpace)
	if len(app.checked["Equity"]) != 0 {
		t.Fatalf("expected unchecked, got %v", app.checked)
	}
}

func TestRemoteFailureKeepsForm(t *testing.T) {
	rec := &recordingSink{err: &sink.RemoteWriteError{StatusCode: 422, Body: `{"message":"sha wasn't supplied"}`}}
	app := newTestApp(t, survey.VariantAction, rec)
	typeText(t, app, "Jane")
	focusOn(t, app, fieldChecklist)
	press(t, app, keySpace)

	submit(t, app)
	if !strings.HasPrefix(app.statusMsg, "Error uploading to GitHub: 422") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
	if app.nameInput.Value() != "Jane" || len(app.checked["Equity"]) != 1 {
		t.Fatalf("form state should survive a failed submit")
	}
	if app.Roadmap().Len() != 2 {
		t.Fatalf("roadmap changed")
	}

	rec.err = nil
	submit(t, app)
	if app.statusKind != statusSuccess || len(rec.calls) != 2 {
		t.Fatalf("resubmission should succeed, status %q calls %d", app.statusMsg, len(rec.calls))
	}
}

func TestOpportunityVariantSubmitsWholeRoadmap(t *testing.T) {
	rec := &recordingSink{}
	app := newTestApp(t, survey.VariantOpportunity, rec)
	for _, f := range app.ring() {
		if f == fieldChecklist {
			t.Fatalf("checklist should not be focusable in the opportunity variant")
		}
	}
	typeText(t, app, "Jane")
	submit(t, app)
	if app.statusKind != statusSuccess {
		t.Fatalf("expected success, got %q", app.statusMsg)
	}
	if got := rec.calls[0].Record.Columns; strings.Join(got, ",") != "Barrier,Opportunity,Name,Comments" {
		t.Fatalf("unexpected columns %v", got)
	}
	if len(rec.calls[0].Record.Rows) != 2 {
		t.Fatalf("expected every pair submitted, got %d", len(rec.calls[0].Record.Rows))
	}
}

func TestViewShowsFormAndLog(t *testing.T) {
	app := newTestApp(t, survey.VariantAction, &recordingSink{})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 60})
	view := app.View()
	for _, want := range []string{"Barrier-Action Survey", "Name and Agency", "Equity", "[ ] Targeted outreach", "LOG · journey.log"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestVisibleRange(t *testing.T) {
	cases := []struct {
		focus, total, rows int
		start, end         int
	}{
		{0, 3, 5, 0, 3},
		{0, 20, 5, 0, 5},
		{10, 20, 5, 8, 13},
		{19, 20, 5, 15, 20},
	}
	for _, tc := range cases {
		start, end := visibleRange(tc.focus, tc.total, tc.rows)
		if start != tc.start || end != tc.end {
			t.Fatalf("visibleRange(%d,%d,%d) = %d,%d want %d,%d", tc.focus, tc.total, tc.rows, start, end, tc.start, tc.end)
		}
	}
}
