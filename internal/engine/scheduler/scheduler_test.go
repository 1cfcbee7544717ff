package scheduler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/synctest"

	"go.trai.ch/mk/internal/adapters/telemetry"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports/mocks"
	"go.trai.ch/mk/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

// staleNode assembles a rule-backed node that must run.
func staleNode(name string, recipe []string, prereqs ...*domain.Node) *domain.Node {
	rule, _ := domain.NewRule(name, nil, recipe)
	return &domain.Node{
		Name:    domain.NewInternedString(name),
		Rule:    rule,
		Prereqs: prereqs,
		Stale:   true,
	}
}

// leafNode assembles an up-to-date node without a rule.
func leafNode(name string) *domain.Node {
	return &domain.Node{
		Name:   domain.NewInternedString(name),
		Exists: true,
	}
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	return log
}

func discardOptions(jobs int) scheduler.Options {
	return scheduler.Options{Jobs: jobs, Stdout: io.Discard, Stderr: io.Discard}
}

func noBindings() domain.Bindings {
	return domain.NewBindings(nil, nil, nil)
}

func TestScheduler_Run_Sequential(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// c -> b -> a, everything stale. One job must replay the plan order.
	c := staleNode("c", []string{"build c"})
	b := staleNode("b", []string{"build b"}, c)
	a := staleNode("a", []string{"build a"}, b)
	g := domain.NewGraph([]*domain.Node{c, b, a}, []*domain.Node{a})

	var got []string
	mockRunner := mocks.NewMockCommandRunner(ctrl)
	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
			got = append(got, cmd.Line)
			return 0, nil
		}).Times(3)

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	if err := s.Run(context.Background(), g, noBindings(), discardOptions(1)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"build c", "build b", "build a"}
	if len(got) != len(want) {
		t.Fatalf("executed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScheduler_Run_SkipsFresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// b is up to date, a is not. Only a's recipe may run, and b must be
	// reported as skipped.
	b := staleNode("b", []string{"build b"})
	b.Stale = false
	b.Exists = true
	a := staleNode("a", []string{"build a"}, b)
	g := domain.NewGraph([]*domain.Node{b, a}, []*domain.Node{a})

	mockRunner := mocks.NewMockCommandRunner(ctrl)
	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
			if cmd.Target != "a" {
				t.Errorf("unexpected recipe for %s", cmd.Target)
			}
			return 0, nil
		}).Times(1)

	mockTel := mocks.NewMockTelemetry(ctrl)
	vertexB := mocks.NewMockVertex(ctrl)
	vertexA := mocks.NewMockVertex(ctrl)

	mockTel.EXPECT().Record(gomock.Any(), "b").Return(context.Background(), vertexB)
	vertexB.EXPECT().Cached()
	vertexB.EXPECT().Complete(nil)

	mockTel.EXPECT().Record(gomock.Any(), "a").Return(context.Background(), vertexA)
	vertexA.EXPECT().Stdout().Return(io.Discard)
	vertexA.EXPECT().Stderr().Return(io.Discard)
	vertexA.EXPECT().Complete(nil)

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), mockTel)
	if err := s.Run(context.Background(), g, noBindings(), discardOptions(1)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestScheduler_Run_MaterializesPlaceholders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	src := leafNode("app.c")
	obj := staleNode("app.o", []string{"$(CC) -c -o $@ $<"}, src)
	g := domain.NewGraph([]*domain.Node{src, obj}, []*domain.Node{obj})

	mockRunner := mocks.NewMockCommandRunner(ctrl)
	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
			if cmd.Line != "gcc -c -o app.o app.c" {
				t.Errorf("materialized %q", cmd.Line)
			}
			return 0, nil
		}).Times(1)

	binds := domain.NewBindings(map[string]string{"CC": "gcc"}, nil, nil)
	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	if err := s.Run(context.Background(), g, binds, discardOptions(1)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestScheduler_Run_UnresolvedPlaceholder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a := staleNode("a", []string{"echo $(MISSING)"})
	g := domain.NewGraph([]*domain.Node{a}, []*domain.Node{a})

	// No runner expectation: a line that does not materialize never runs.
	mockRunner := mocks.NewMockCommandRunner(ctrl)

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	err := s.Run(context.Background(), g, noBindings(), discardOptions(1))
	if !errors.Is(err, domain.ErrUnresolvedPlaceholder) {
		t.Fatalf("expected unresolved placeholder error, got %v", err)
	}
}

func TestScheduler_Run_DryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := staleNode("c", []string{"build c"})
	b := staleNode("b", []string{"build b"}, c)
	g := domain.NewGraph([]*domain.Node{c, b}, []*domain.Node{b})

	// No runner expectation: a dry run only echoes.
	mockRunner := mocks.NewMockCommandRunner(ctrl)

	mockLogger := mocks.NewMockLogger(ctrl)
	gomock.InOrder(
		mockLogger.EXPECT().Info("build c"),
		mockLogger.EXPECT().Info("build b"),
	)

	opts := discardOptions(1)
	opts.DryRun = true

	s := scheduler.NewScheduler(mockRunner, mockLogger, telemetry.NewNoop())
	if err := s.Run(context.Background(), g, noBindings(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestScheduler_Run_RecipeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// b fails, so c and a must never start.
	b := staleNode("b", []string{"build b"})
	c := staleNode("c", []string{"build c"})
	a := staleNode("a", []string{"build a"}, b, c)
	g := domain.NewGraph([]*domain.Node{b, c, a}, []*domain.Node{a})

	mockRunner := mocks.NewMockCommandRunner(ctrl)
	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
			if cmd.Target != "b" {
				t.Errorf("unexpected recipe for %s", cmd.Target)
			}
			return 1, nil
		}).Times(1)

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	err := s.Run(context.Background(), g, noBindings(), discardOptions(1))
	if !errors.Is(err, domain.ErrRecipeFailed) {
		t.Fatalf("expected recipe failure, got %v", err)
	}

	var zerrErr *zerr.Error
	if !errors.As(err, &zerrErr) {
		t.Fatalf("expected a zerr error, got %T", err)
	}
	meta := zerrErr.Metadata()
	if meta["target"] != "b" {
		t.Errorf("target metadata = %v", meta["target"])
	}
	if meta["command"] != "build b" {
		t.Errorf("command metadata = %v", meta["command"])
	}
	if meta["exit_status"] != 1 {
		t.Errorf("exit_status metadata = %v", meta["exit_status"])
	}
}

func TestScheduler_Run_StopsAfterFailedLine(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a := staleNode("a", []string{"step one", "step two"})
	g := domain.NewGraph([]*domain.Node{a}, []*domain.Node{a})

	mockRunner := mocks.NewMockCommandRunner(ctrl)
	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
			if cmd.Line != "step one" {
				t.Errorf("unexpected command %q", cmd.Line)
			}
			return 2, nil
		}).Times(1)

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	err := s.Run(context.Background(), g, noBindings(), discardOptions(1))
	if !errors.Is(err, domain.ErrRecipeFailed) {
		t.Fatalf("expected recipe failure, got %v", err)
	}
}

func TestScheduler_Run_StreamsRecipeOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a := staleNode("a", []string{"emit"})
	g := domain.NewGraph([]*domain.Node{a}, []*domain.Node{a})

	mockRunner := mocks.NewMockCommandRunner(ctrl)
	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.Command, stdout, stderr io.Writer) (int, error) {
			_, _ = io.WriteString(stdout, "hello\n")
			_, _ = io.WriteString(stderr, "oops\n")
			return 0, nil
		}).Times(1)

	var stdout, stderr bytes.Buffer
	opts := scheduler.Options{Jobs: 1, Stdout: &stdout, Stderr: &stderr}

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	if err := s.Run(context.Background(), g, noBindings(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stdout.String() != "hello\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if stderr.String() != "oops\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestScheduler_Run_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a := staleNode("a", []string{"build a"})
	g := domain.NewGraph([]*domain.Node{a}, []*domain.Node{a})

	// No runner expectation: nothing starts under a canceled context.
	mockRunner := mocks.NewMockCommandRunner(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())
	err := s.Run(ctx, g, noBindings(), discardOptions(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScheduler_Run_Diamond(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// a depends on b and c, both depend on d. With two jobs, b and c
		// must run concurrently once d is done.
		d := staleNode("d", []string{"build d"})
		b := staleNode("b", []string{"build b"}, d)
		c := staleNode("c", []string{"build c"}, d)
		a := staleNode("a", []string{"build a"}, b, c)
		g := domain.NewGraph([]*domain.Node{d, b, c, a}, []*domain.Node{a})

		bStarted := make(chan struct{})
		cStarted := make(chan struct{})
		proceed := make(chan struct{})

		var mu sync.Mutex
		executed := make(map[string]bool)

		mockRunner := mocks.NewMockCommandRunner(ctrl)
		mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
				mu.Lock()
				executed[cmd.Target] = true
				mu.Unlock()

				switch cmd.Target {
				case "b":
					close(bStarted)
					<-proceed
				case "c":
					close(cStarted)
					<-proceed
				}
				return 0, nil
			}).Times(4)

		s := scheduler.NewScheduler(mockRunner, quietLogger(ctrl), telemetry.NewNoop())

		errCh := make(chan error)
		go func() {
			errCh <- s.Run(context.Background(), g, noBindings(), discardOptions(2))
		}()

		// Both middle nodes must be in flight at the same time.
		<-bStarted
		<-cStarted

		mu.Lock()
		if executed["a"] {
			t.Error("a started before its prerequisites finished")
		}
		mu.Unlock()

		close(proceed)

		if err := <-errCh; err != nil {
			t.Errorf("Run failed: %v", err)
		}

		for _, name := range []string{"a", "b", "c", "d"} {
			if !executed[name] {
				t.Errorf("%s never ran", name)
			}
		}
	})
}

func TestScheduler_Run_FirstFailureWins(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// b and c run in parallel and both fail. The error Run returns is
		// b's, the one that failed first; c's failure is only logged.
		b := staleNode("b", []string{"build b"})
		c := staleNode("c", []string{"build c"})
		a := staleNode("a", []string{"build a"}, b, c)
		g := domain.NewGraph([]*domain.Node{b, c, a}, []*domain.Node{a})

		bRunning := make(chan struct{})
		cRunning := make(chan struct{})
		bProceed := make(chan struct{})
		cProceed := make(chan struct{})

		mockRunner := mocks.NewMockCommandRunner(ctrl)
		mockRunner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, cmd domain.Command, _, _ io.Writer) (int, error) {
				switch cmd.Target {
				case "b":
					close(bRunning)
					<-bProceed
					return 1, nil
				case "c":
					close(cRunning)
					<-cProceed
					return 2, nil
				default:
					t.Errorf("unexpected recipe for %s", cmd.Target)
					return 0, nil
				}
			}).Times(2)

		warned := make(chan string, 1)
		mockLogger := mocks.NewMockLogger(ctrl)
		mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()
		mockLogger.EXPECT().Warn(gomock.Any()).Do(func(msg string) { warned <- msg }).Times(1)

		s := scheduler.NewScheduler(mockRunner, mockLogger, telemetry.NewNoop())

		errCh := make(chan error)
		go func() {
			errCh <- s.Run(context.Background(), g, noBindings(), discardOptions(2))
		}()

		<-bRunning
		<-cRunning

		// Let b fail and drain before c reports its own failure.
		close(bProceed)
		synctest.Wait()
		close(cProceed)

		err := <-errCh
		if !errors.Is(err, domain.ErrRecipeFailed) {
			t.Fatalf("expected recipe failure, got %v", err)
		}

		var zerrErr *zerr.Error
		if !errors.As(err, &zerrErr) {
			t.Fatalf("expected a zerr error, got %T", err)
		}
		if zerrErr.Metadata()["target"] != "b" {
			t.Errorf("returned error is for %v, want b", zerrErr.Metadata()["target"])
		}

		if msg := <-warned; !strings.Contains(msg, "c") {
			t.Errorf("warning does not name the second failure: %q", msg)
		}
	})
}
