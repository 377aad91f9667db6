package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/roadmap-survey/internal/logbook"
	"github.com/kingrea/roadmap-survey/internal/metrics"
	"github.com/kingrea/roadmap-survey/internal/roadmap"
)

// State is a step of the submission state machine.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateRejected    State = "rejected"
	StateBuilding    State = "building"
	StateSerializing State = "serializing"
	StatePersisting  State = "persisting"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
)

// Submission is what a sink receives: the built record plus its CSV form.
type Submission struct {
	Name     string
	Variant  Variant
	FileName string
	Record   Record
	CSV      []byte
}

// Receipt describes where a sink stored a submission.
type Receipt struct {
	Sink     string `json:"sink"`
	Location string `json:"location"`
}

// Sink persists a submission to exactly one destination.
type Sink interface {
	Name() string
	Persist(ctx context.Context, sub Submission) (Receipt, error)
}

// Request carries the respondent input gathered at submit time.
type Request struct {
	Name      string
	Comments  string
	Selection Selection
	// Roadmap is read by the opportunity variant, which submits every pair.
	Roadmap *roadmap.Roadmap
}

// Outcome reports the terminal state of one Submit call.
type Outcome struct {
	State   State
	Record  Record
	Receipt Receipt
}

// Submitter drives validation, building, serialization and persistence for
// one survey deployment. It holds no roadmap state of its own.
type Submitter struct {
	variant  Variant
	sink     Sink
	logbook  *logbook.Logbook
	metrics  *metrics.Metrics
	observer func(State)
	clock    func() time.Time
	state    State
}

// SubmitterOption customizes a Submitter.
type SubmitterOption func(*Submitter)

// WithLogbook journals every submission outcome.
func WithLogbook(lb *logbook.Logbook) SubmitterOption {
	return func(s *Submitter) {
		s.logbook = lb
	}
}

// WithMetrics records submission counters and persist latency.
func WithMetrics(m *metrics.Metrics) SubmitterOption {
	return func(s *Submitter) {
		s.metrics = m
	}
}

// WithObserver is notified on every state transition.
func WithObserver(fn func(State)) SubmitterOption {
	return func(s *Submitter) {
		s.observer = fn
	}
}

// WithClock overrides the clock used for persist timings.
func WithClock(clock func() time.Time) SubmitterOption {
	return func(s *Submitter) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewSubmitter builds a submitter writing to sink.
func NewSubmitter(variant Variant, sink Sink, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		variant: variant,
		sink:    sink,
		clock:   time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Variant returns the configured survey variant.
func (s *Submitter) Variant() Variant {
	return s.variant
}

// SinkName returns the name of the configured sink.
func (s *Submitter) SinkName() string {
	if s.sink == nil {
		return ""
	}
	return s.sink.Name()
}

// State returns the current machine state. Rejected and failed submissions
// settle back to idle so the respondent can correct input and resubmit.
func (s *Submitter) State() State {
	return s.state
}

// Submit runs one submission. A *ValidationError means the input was
// rejected; any other error comes from serialization or the sink. Neither
// case changes req.Roadmap, so the same request can be submitted again.
func (s *Submitter) Submit(ctx context.Context, req Request) (Outcome, error) {
	if s.sink == nil {
		return Outcome{State: StateFailed}, errors.New("survey: no sink configured")
	}
	sinkName := s.sink.Name()
	req.Name = strings.TrimSpace(req.Name)
	s.transition(StateValidating)
	if err := Validate(s.variant, req.Name, req.Selection); err != nil {
		s.transition(StateRejected)
		s.logbook.Warn("Submission rejected · %s", err.Error())
		s.metrics.ObserveSubmission(sinkName, string(StateRejected))
		s.transition(StateIdle)
		return Outcome{State: StateRejected}, err
	}

	s.transition(StateBuilding)
	var rec Record
	if s.variant.SubmitsSelection() {
		rec = Build(req.Name, req.Selection, req.Comments)
	} else {
		rec = BuildAll(req.Name, req.Roadmap, req.Comments)
	}

	s.transition(StateSerializing)
	payload, err := rec.MarshalCSV()
	if err != nil {
		return s.fail(sinkName, rec, err)
	}

	s.transition(StatePersisting)
	started := s.clock()
	receipt, err := s.sink.Persist(ctx, Submission{
		Name:     req.Name,
		Variant:  s.variant,
		FileName: FileName(req.Name),
		Record:   rec,
		CSV:      payload,
	})
	s.metrics.ObservePersist(sinkName, s.clock().Sub(started))
	if err != nil {
		return s.fail(sinkName, rec, err)
	}

	s.transition(StateSucceeded)
	s.logbook.Info("Submission saved · %s · %d row(s) · %s", req.Name, rec.Len(), receipt.Location)
	s.metrics.ObserveSubmission(sinkName, string(StateSucceeded))
	return Outcome{State: StateSucceeded, Record: rec, Receipt: receipt}, nil
}

func (s *Submitter) fail(sinkName string, rec Record, err error) (Outcome, error) {
	s.transition(StateFailed)
	s.logbook.Error("Submission failed · %s: %v", sinkName, err)
	s.metrics.ObserveSubmission(sinkName, string(StateFailed))
	s.transition(StateIdle)
	return Outcome{State: StateFailed, Record: rec}, fmt.Errorf("survey: persist via %s: %w", sinkName, err)
}

func (s *Submitter) transition(next State) {
	s.state = next
	if s.observer != nil {
		s.observer(next)
	}
}
