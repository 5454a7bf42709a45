package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// recordingStep is a Step that records calls and can fail on demand.
type recordingStep struct {
	name string
	err  error

	mu     sync.Mutex
	calls  int
	ctxErr error
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Do(ctx context.Context, _ *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.ctxErr = ctx.Err()
	return s.err
}

func (s *recordingStep) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New()
	if p.logger == nil {
		t.Error("expected default logger")
	}
	if p.continueOnError {
		t.Error("expected continueOnError to default to false")
	}
	if p.StepCount() != 0 {
		t.Errorf("expected no steps, got %d", p.StepCount())
	}
}

func TestPipelineSteps(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&recordingStep{name: "crawl"})
	p.AddSteps(&recordingStep{name: "enrich"}, &recordingStep{name: "filter"})
	p.AddFinalStep(&recordingStep{name: "persist"})

	if p.StepCount() != 4 {
		t.Errorf("StepCount() = %d, want 4", p.StepCount())
	}
	if got := strings.Join(p.StepNames(), ","); got != "crawl,enrich,filter,persist" {
		t.Errorf("StepNames() = %s", got)
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs all steps in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&recordingStep{name: "a"}, &recordingStep{name: "b"})
		p.AddFinalStep(&recordingStep{name: "c"})

		run := NewRun("https://example.com/")
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Join(run.Performed, ","); got != "a,b,c" {
			t.Errorf("Performed = %s", got)
		}
	})

	t.Run("stops main steps on error but runs final steps", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &recordingStep{name: "a", err: boom}
		skipped := &recordingStep{name: "b"}
		final := &recordingStep{name: "c"}

		p := New()
		p.AddSteps(failing, skipped)
		p.AddFinalStep(final)

		run := NewRun("https://example.com/")
		err := p.Execute(context.Background(), run)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if !errors.Is(run.Err, boom) {
			t.Errorf("run.Err = %v", run.Err)
		}
		if skipped.Calls() != 0 {
			t.Error("expected second main step to be skipped")
		}
		if final.Calls() != 1 {
			t.Error("expected final step to run")
		}
	})

	t.Run("continue on error", func(t *testing.T) {
		t.Parallel()

		first := errors.New("first")
		second := &recordingStep{name: "b", err: errors.New("second")}

		p := New(WithContinueOnError(true))
		p.AddSteps(&recordingStep{name: "a", err: first}, second, &recordingStep{name: "c"})

		run := NewRun("https://example.com/")
		err := p.Execute(context.Background(), run)
		if !errors.Is(err, first) {
			t.Errorf("expected the first error to be kept, got %v", err)
		}
		if second.Calls() != 1 {
			t.Error("expected later steps to run")
		}
		if got := strings.Join(run.Performed, ","); got != "c" {
			t.Errorf("Performed = %s", got)
		}
	})

	t.Run("cancelled context skips main steps only", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		main := &recordingStep{name: "crawl"}
		final := &recordingStep{name: "report"}

		p := New()
		p.AddStep(main)
		p.AddFinalStep(final)

		run := NewRun("https://example.com/")
		err := p.Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if main.Calls() != 0 {
			t.Error("expected main step to be skipped")
		}
		if final.Calls() != 1 {
			t.Fatal("expected final step to run")
		}
		if final.ctxErr != nil {
			t.Errorf("final step saw cancelled context: %v", final.ctxErr)
		}
	})
}
