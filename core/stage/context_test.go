package stage

import (
	"context"
	"errors"

	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stage execution context", func() {
	var (
		ec                           *ExecutionContext
		ready, inProgress, completed *recordingState
		ctx                          context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		ec = NewExecutionContext("itw", &Stage{Name: "TEST", Module: "test"})
		ready = newRecordingState("ready")
		inProgress = newRecordingState("inProgress")
		completed = newRecordingState("completed")
		completed.final = true

		Expect(ec.AddEdge(ready, sm.START, inProgress)).To(Succeed())
		Expect(ec.AddEdge(inProgress, sm.CANCEL, ready)).To(Succeed())
		Expect(ec.AddEdge(inProgress, sm.COMPLETE, completed)).To(Succeed())
		Expect(ec.AddEdge(completed, sm.CANCEL, ready)).To(Succeed())
	})

	When("no initial state has been set", func() {
		It("should refuse to dispatch", func() {
			Expect(ec.Fire(ctx, sm.START)).To(MatchError(ErrNoInitialState))
			Expect(ec.CurrentState()).To(BeNil())
		})
		It("should refuse to restore", func() {
			Expect(ec.Restore("ready")).To(MatchError(ErrNoInitialState))
		})
	})

	When("the initial state is set", func() {
		BeforeEach(func() {
			Expect(ec.SetInitialState(ready)).To(Succeed())
		})

		It("should start in the initial state", func() {
			Expect(ec.CurrentStateName()).To(Equal("ready"))
			Expect(ec.CurrentState()).To(BeIdenticalTo(ready))
		})
		It("should refuse a second initial state", func() {
			Expect(ec.SetInitialState(inProgress)).To(MatchError(ErrInitialStateSet))
		})
		It("should follow a mapped edge exactly once", func() {
			Expect(ec.Fire(ctx, sm.START)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal("inProgress"))
			Expect(ready.exited).To(HaveLen(1))
			Expect(inProgress.entered).To(Equal([]sm.Transition{{Evt: sm.START, Src: "ready", Dst: "inProgress"}}))
		})
		It("should leave the state unchanged on an unmapped event", func() {
			err := ec.Fire(ctx, sm.COMPLETE)
			Expect(IsUnmapped(err)).To(BeTrue())
			Expect(ec.CurrentStateName()).To(Equal("ready"))
			Expect(ready.exited).To(BeEmpty())
		})
		It("should silently ignore unmapped events cast through the sink", func() {
			var sink TransitionEventSink = ec
			sink.CastEvent(sm.NewEvent("NOPE"))
			Expect(ec.CurrentStateName()).To(Equal("ready"))
		})
		It("should seal the graph once started", func() {
			Expect(ec.Fire(ctx, sm.START)).To(Succeed())
			Expect(ec.AddEdge(ready, sm.SKIP, completed)).To(MatchError(ErrSealed))
			Expect(ec.SetInitialState(ready)).To(MatchError(ErrSealed))
		})
		It("should list the events available from the current state", func() {
			Expect(ec.AvailableEvents()).To(Equal([]sm.Event{sm.START}))
			Expect(ec.Fire(ctx, sm.START)).To(Succeed())
			Expect(ec.AvailableEvents()).To(Equal([]sm.Event{sm.CANCEL, sm.COMPLETE}))
		})
		It("should keep the state when leaving is refused", func() {
			ready.refuseExit = true
			err := ec.Fire(ctx, sm.START)
			var canceled *CanceledTransitionError
			Expect(errors.As(err, &canceled)).To(BeTrue())
			Expect(canceled.Transition.Dst).To(Equal("inProgress"))
			Expect(ec.CurrentStateName()).To(Equal("ready"))
		})
		It("should dispatch follow-up events requested on entry", func() {
			inProgress.onEnter = sm.COMPLETE
			Expect(ec.Fire(ctx, sm.START)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal("completed"))
			Expect(ec.IsFinal()).To(BeTrue())
		})
		It("should notify listeners of every executed transition", func() {
			inProgress.onEnter = sm.COMPLETE
			var seen []sm.Transition
			ec.AddTransitionListener(func(c *ExecutionContext, t sm.Transition) {
				Expect(c).To(BeIdenticalTo(ec))
				// the lock is released before listeners run
				Expect(c.CurrentStateName()).To(Equal("completed"))
				seen = append(seen, t)
			})
			Expect(ec.Fire(ctx, sm.START)).To(Succeed())
			Expect(seen).To(Equal([]sm.Transition{
				{Evt: sm.START, Src: "ready", Dst: "inProgress"},
				{Evt: sm.COMPLETE, Src: "inProgress", Dst: "completed"},
			}))
		})
		It("should restore a persisted state without running handlers", func() {
			Expect(ec.Restore("completed")).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal("completed"))
			Expect(completed.entered).To(BeEmpty())
			Expect(ec.Restore("nowhere")).To(MatchError(UnknownStateError{Name: "nowhere"}))
		})
		It("should list edges in a stable order", func() {
			Expect(ec.Edges()).To(Equal([]Edge{
				{From: "completed", Event: sm.CANCEL, To: "ready"},
				{From: "inProgress", Event: sm.CANCEL, To: "ready"},
				{From: "inProgress", Event: sm.COMPLETE, To: "completed"},
				{From: "ready", Event: sm.START, To: "inProgress"},
			}))
		})
	})

	Describe("edge registration", func() {
		It("should accept the same edge twice", func() {
			Expect(ec.AddEdge(ready, sm.START, inProgress)).To(Succeed())
		})
		It("should refuse to redirect an existing edge", func() {
			err := ec.AddEdge(ready, sm.START, completed)
			Expect(err).To(MatchError(DuplicateEdgeError{State: "ready", Event: sm.START, Existing: "inProgress", Requested: "completed"}))
		})
		It("should refuse two different states with the same name", func() {
			impostor := newRecordingState("ready")
			Expect(ec.AddEdge(impostor, sm.SKIP, completed)).To(MatchError(DuplicateStateError{Name: "ready"}))
		})
		It("should run exit and enter on a self transition", func() {
			Expect(ec.AddEdge(ready, sm.VALID, ready)).To(Succeed())
			Expect(ec.SetInitialState(ready)).To(Succeed())
			Expect(ec.Fire(ctx, sm.VALID)).To(Succeed())
			Expect(ready.exited).To(HaveLen(1))
			Expect(ready.entered).To(HaveLen(1))
		})
	})

	Describe("performing actions", func() {
		BeforeEach(func() {
			Expect(ec.SetInitialState(ready)).To(Succeed())
			ready.onExecute = sm.START
			inProgress.onComplete = sm.COMPLETE
		})
		It("should route an offered action to the state handler", func() {
			Expect(ec.Perform(ctx, action.New("itw", "TEST", action.EXECUTE, "nurse"))).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal("inProgress"))
		})
		It("should accept system actions", func() {
			Expect(ec.Perform(ctx, action.New("itw", "TEST", action.EXECUTE, "nurse"))).To(Succeed())
			Expect(ec.Perform(ctx, action.New("itw", "TEST", action.COMPLETE, "system"))).To(Succeed())
			Expect(ec.IsFinal()).To(BeTrue())
		})
		It("should refuse an action the state does not offer", func() {
			err := ec.Perform(ctx, action.New("itw", "TEST", action.SKIP, "nurse"))
			var notAllowed *ActionNotAllowedError
			Expect(errors.As(err, &notAllowed)).To(BeTrue())
			Expect(notAllowed.State).To(Equal("ready"))
			Expect(ec.CurrentStateName()).To(Equal("ready"))
		})
		It("should stay put when the handler requests nothing", func() {
			ready.onExecute = sm.NONE
			Expect(ec.Perform(ctx, action.New("itw", "TEST", action.EXECUTE, "nurse"))).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal("ready"))
		})
	})

	Describe("delegation to the current state", func() {
		It("should expose the current state's definitions and predicates", func() {
			Expect(ec.SetInitialState(ready)).To(Succeed())
			_, ok := ec.ActionDefinition(action.EXECUTE)
			Expect(ok).To(BeTrue())
			_, ok = ec.SystemActionDefinition(action.COMPLETE)
			Expect(ok).To(BeTrue())
			Expect(ec.ActionDefinitions()).To(HaveLen(1))
			Expect(ec.IsCompleted()).To(BeFalse())
			Expect(ec.IsInteractive()).To(BeFalse())
			Expect(ec.Message()).To(Equal("TEST: ready"))
		})
	})
})
