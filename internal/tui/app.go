// internal/tui/app.go
//
// This is the terminal front end of the survey. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the form state and the session roadmap
// 2. Update: applies key presses and finished submissions
// 3. View: renders the form to a string
//
// Submissions run as a tea.Cmd; their outcome comes back as a message.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/roadmap-survey/internal/logbook"
	"github.com/kingrea/roadmap-survey/internal/metrics"
	"github.com/kingrea/roadmap-survey/internal/roadmap"
	"github.com/kingrea/roadmap-survey/internal/sink"
	"github.com/kingrea/roadmap-survey/internal/survey"
)

// field identifies a stop in the focus ring.
type field int

const (
	fieldName        field = iota // "Name and Agency"
	fieldExisting                 // existing barrier picker
	fieldNewBarrier               // "Or Enter a New Barrier"
	fieldAction                   // action for the selected barrier
	fieldAdd                      // [Add Barrier/Action]
	fieldChecklist                // pairs the respondent can check
	fieldComments                 // free text
	fieldSubmit                   // [Submit Response]
)

type statusKind int

const (
	statusNone statusKind = iota
	statusInfo
	statusSuccess
	statusError
)

// submitFinishedMsg carries the result of a submission back to Update.
type submitFinishedMsg struct {
	outcome survey.Outcome
	err     error
}

// Params wires the form to its survey deployment.
type Params struct {
	Variant   survey.Variant
	Title     string
	Seed      roadmap.Seed
	Submitter *survey.Submitter
	Logbook   *logbook.Logbook
	Metrics   *metrics.Metrics
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithContext sets the context submissions run under.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the survey form model. In bubbletea, this holds ALL your state.
type App struct {
	ctx       context.Context
	variant   survey.Variant
	title     string
	store     *roadmap.Store
	submitter *survey.Submitter
	logbook   *logbook.Logbook
	metrics   *metrics.Metrics
	keys      keyMap

	// Form fields
	focus       field
	nameInput   textinput.Model
	newBarrier  textinput.Model
	actionInput textinput.Model
	comments    textarea.Model
	existingIdx int // 0 is "no barrier selected"

	// Checklist state. checked keeps actions in the order they were checked.
	cursor  int
	checked map[string][]string

	submitting bool
	submitted  *survey.Record
	statusMsg  string
	statusKind statusKind

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates the form and seeds the session roadmap.
func NewApp(p Params, opts ...AppOption) *App {
	variant := p.Variant
	if variant == "" {
		variant = survey.VariantAction
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = variant.Title()
	}

	name := textinput.New()
	name.Placeholder = "Name and Agency"
	name.Prompt = ""
	name.CharLimit = 200

	newBarrier := textinput.New()
	newBarrier.Placeholder = "Or enter a new barrier"
	newBarrier.Prompt = ""

	action := textinput.New()
	action.Placeholder = fmt.Sprintf("%s for the selected barrier", variant.ItemLabel())
	action.Prompt = ""

	comments := textarea.New()
	comments.Placeholder = "Additional comments or thoughts"
	comments.ShowLineNumbers = false
	comments.SetHeight(3)

	app := &App{
		ctx:         context.Background(),
		variant:     variant,
		title:       title,
		store:       roadmap.NewStore(p.Seed),
		submitter:   p.Submitter,
		logbook:     p.Logbook,
		metrics:     p.Metrics,
		keys:        defaultKeyMap(),
		nameInput:   name,
		newBarrier:  newBarrier,
		actionInput: action,
		comments:    comments,
		checked:     map[string][]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	rm := app.store.Seed()
	app.logInfo("Session opened · %s · %d barrier(s)", variant, rm.Len())
	app.focusField(fieldName)
	return app
}

// Roadmap returns the session roadmap.
func (a *App) Roadmap() *roadmap.Roadmap {
	return a.store.Seed()
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		inputWidth := max(20, msg.Width-24)
		a.nameInput.Width = inputWidth
		a.newBarrier.Width = inputWidth
		a.actionInput.Width = inputWidth
		a.comments.SetWidth(max(20, msg.Width-8))
		return a, nil

	case submitFinishedMsg:
		return a.handleSubmitFinished(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			a.logInfo("Session closed")
			return a, tea.Quit
		case key.Matches(msg, a.keys.Submit):
			return a.startSubmit()
		case key.Matches(msg, a.keys.Next):
			return a, a.focusField(a.nextField(1))
		case key.Matches(msg, a.keys.Prev):
			return a, a.focusField(a.nextField(-1))
		}
		if handled, model, cmd := a.handleFieldKey(msg); handled {
			return model, cmd
		}
	}

	return a, a.updateFocusedInput(msg)
}

// handleFieldKey processes keys that mean something for the focused field
// beyond plain text entry.
func (a *App) handleFieldKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch a.focus {
	case fieldExisting:
		options := a.existingOptions()
		switch {
		case key.Matches(msg, a.keys.Left):
			a.existingIdx = (a.existingIdx - 1 + len(options)) % len(options)
		case key.Matches(msg, a.keys.Right):
			a.existingIdx = (a.existingIdx + 1) % len(options)
		case key.Matches(msg, a.keys.Activate):
			return true, a, a.focusField(fieldAction)
		}
		return true, a, nil
	case fieldNewBarrier, fieldAction, fieldAdd:
		if key.Matches(msg, a.keys.Activate) {
			a.applyEdit()
			return true, a, nil
		}
	case fieldName:
		if key.Matches(msg, a.keys.Activate) {
			return true, a, a.focusField(a.nextField(1))
		}
	case fieldChecklist:
		pairs := a.Roadmap().Pairs()
		switch {
		case key.Matches(msg, a.keys.Up):
			if a.cursor > 0 {
				a.cursor--
			}
		case key.Matches(msg, a.keys.Down):
			if a.cursor < len(pairs)-1 {
				a.cursor++
			}
		case key.Matches(msg, a.keys.Toggle), key.Matches(msg, a.keys.Activate):
			if a.cursor < len(pairs) {
				a.toggle(pairs[a.cursor])
			}
		}
		return true, a, nil
	case fieldSubmit:
		if key.Matches(msg, a.keys.Activate) {
			model, cmd := a.startSubmit()
			return true, model, cmd
		}
		return true, a, nil
	}
	return false, a, nil
}

func (a *App) updateFocusedInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case fieldName:
		a.nameInput, cmd = a.nameInput.Update(msg)
	case fieldNewBarrier:
		a.newBarrier, cmd = a.newBarrier.Update(msg)
	case fieldAction:
		a.actionInput, cmd = a.actionInput.Update(msg)
	case fieldComments:
		a.comments, cmd = a.comments.Update(msg)
	}
	return cmd
}

// ring lists the focusable fields. The checklist is display-only when the
// variant submits the whole roadmap.
func (a *App) ring() []field {
	fields := []field{fieldName, fieldExisting, fieldNewBarrier, fieldAction, fieldAdd}
	if a.variant.SubmitsSelection() {
		fields = append(fields, fieldChecklist)
	}
	return append(fields, fieldComments, fieldSubmit)
}

func (a *App) nextField(step int) field {
	fields := a.ring()
	for i, f := range fields {
		if f == a.focus {
			return fields[(i+step+len(fields))%len(fields)]
		}
	}
	return fields[0]
}

func (a *App) focusField(f field) tea.Cmd {
	a.focus = f
	a.nameInput.Blur()
	a.newBarrier.Blur()
	a.actionInput.Blur()
	a.comments.Blur()
	switch f {
	case fieldName:
		return a.nameInput.Focus()
	case fieldNewBarrier:
		return a.newBarrier.Focus()
	case fieldAction:
		return a.actionInput.Focus()
	case fieldComments:
		return a.comments.Focus()
	}
	return nil
}

// existingOptions mirrors the barrier picker: a blank entry followed by the
// roadmap's barriers.
func (a *App) existingOptions() []string {
	return append([]string{""}, a.Roadmap().Barriers()...)
}

func (a *App) selectedExisting() string {
	options := a.existingOptions()
	if a.existingIdx <= 0 || a.existingIdx >= len(options) {
		return ""
	}
	return options[a.existingIdx]
}

// applyEdit runs the "Add Barrier/Action" button.
func (a *App) applyEdit() {
	edit := roadmap.Edit{
		NewBarrier:      a.newBarrier.Value(),
		ExistingBarrier: a.selectedExisting(),
		Action:          a.actionInput.Value(),
	}
	result := a.Roadmap().Apply(edit)
	a.metrics.ObserveEdit(result.Outcome())
	switch {
	case result.Changed():
		a.logInfo("Roadmap updated · %s · barrier_added=%t action_added=%t", result.Barrier, result.BarrierAdded, result.ActionAdded)
		a.setStatus(statusSuccess, "Barrier and/or Action added!")
		a.newBarrier.Reset()
		a.actionInput.Reset()
	case result.Duplicate:
		a.logInfo("Duplicate ignored · %s", result.Barrier)
		a.setStatus(statusInfo, fmt.Sprintf("Already listed under %s.", result.Barrier))
	default:
		a.setStatus(statusInfo, fmt.Sprintf("Enter a new barrier, or pick an existing one and type an %s.", strings.ToLower(a.variant.ItemLabel())))
	}
}

func (a *App) toggle(pair roadmap.Pair) {
	actions := a.checked[pair.Barrier]
	for i, action := range actions {
		if action == pair.Action {
			a.checked[pair.Barrier] = append(actions[:i:i], actions[i+1:]...)
			return
		}
	}
	a.checked[pair.Barrier] = append(actions, pair.Action)
}

func (a *App) isChecked(pair roadmap.Pair) bool {
	for _, action := range a.checked[pair.Barrier] {
		if action == pair.Action {
			return true
		}
	}
	return false
}

func (a *App) setStatus(kind statusKind, msg string) {
	a.statusKind = kind
	a.statusMsg = msg
}

// startSubmit hands a snapshot of the form to the submitter. The roadmap is
// cloned so edits made while the write is in flight cannot race with it.
func (a *App) startSubmit() (tea.Model, tea.Cmd) {
	if a.submitting {
		return a, nil
	}
	if a.submitter == nil {
		a.setStatus(statusError, "No response sink configured.")
		return a, nil
	}
	rm := a.Roadmap().Clone()
	req := survey.Request{
		Name:      a.nameInput.Value(),
		Comments:  a.comments.Value(),
		Selection: survey.Collect(rm, a.checked),
		Roadmap:   rm,
	}
	a.submitting = true
	a.setStatus(statusInfo, fmt.Sprintf("Submitting via %s…", a.submitter.SinkName()))
	submitter := a.submitter
	ctx := a.ctx
	return a, func() tea.Msg {
		outcome, err := submitter.Submit(ctx, req)
		return submitFinishedMsg{outcome: outcome, err: err}
	}
}

func (a *App) handleSubmitFinished(msg submitFinishedMsg) (tea.Model, tea.Cmd) {
	a.submitting = false
	if msg.err == nil {
		rec := msg.outcome.Record
		a.submitted = &rec
		a.setStatus(statusSuccess, "Your response has been submitted and saved!")
		return a, nil
	}
	var verr *survey.ValidationError
	var rerr *sink.RemoteWriteError
	switch {
	case errors.As(msg.err, &verr):
		a.setStatus(statusError, verr.Message)
	case errors.As(msg.err, &rerr):
		a.setStatus(statusError, rerr.Error())
	default:
		a.setStatus(statusError, fmt.Sprintf("Submission failed: %v", msg.err))
	}
	return a, nil
}
