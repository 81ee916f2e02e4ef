package jade

import (
	"context"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/stage/sm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("jade module", func() {
	var (
		m           *Module
		interviewId uid.ID
		anthro      *stage.Stage
		grip        *stage.Stage
		ctx         context.Context
	)

	perform := func(ec *stage.ExecutionContext, t action.Type) error {
		a := action.New(interviewId, ec.Stage().Name, t, "operator")
		return ec.Perform(ctx, a)
	}

	BeforeEach(func() {
		ctx = context.Background()
		m = NewModule()
		interviewId = uid.New()
		anthro = &stage.Stage{Name: "ANTHRO", Module: Name, Label: "Anthropometry"}
		grip = &stage.Stage{Name: "GRIP", Module: Name, DependsOn: `completed("ANTHRO")`}
	})

	It("should be named jade", func() {
		Expect(m.Name()).To(Equal("jade"))
		Expect(New().Name()).To(Equal("jade"))
	})

	Describe("building execution contexts", func() {
		It("should start a stage without dependency in ready", func() {
			ec, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(ec.CurrentStateName()).To(Equal(READY))
			Expect(ec.Message()).To(Equal("Anthropometry is ready"))
		})

		It("should start a stage with a dependency in waiting", func() {
			ec, err := m.StageExecution(interviewId, grip)
			Expect(err).NotTo(HaveOccurred())
			Expect(ec.CurrentStateName()).To(Equal(WAITING))
			Expect(ec.ActionDefinitions()).To(BeEmpty())
		})

		It("should wire the full transition table", func() {
			ec, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(ec.Edges()).To(HaveLen(13))
			Expect(ec.Edges()).To(ContainElements(
				stage.Edge{From: WAITING, Event: sm.VALID, To: READY},
				stage.Edge{From: READY, Event: sm.SKIP, To: SKIPPED},
				stage.Edge{From: IN_PROGRESS, Event: sm.INTERRUPT, To: INTERRUPTED},
				stage.Edge{From: INTERRUPTED, Event: sm.RESUME, To: IN_PROGRESS},
				stage.Edge{From: COMPLETED, Event: sm.INVALID, To: WAITING},
			))
		})

		It("should return the same context for the same interview and stage", func() {
			first, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			second, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
		})

		It("should keep interviews apart", func() {
			first, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(perform(first, action.EXECUTE)).To(Succeed())

			other, err := m.StageExecution(uid.New(), anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(other).NotTo(BeIdenticalTo(first))
			Expect(other.CurrentStateName()).To(Equal(READY))
		})

		It("should build a fresh context after the interview is forgotten", func() {
			first, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(perform(first, action.EXECUTE)).To(Succeed())

			m.Forget(interviewId)
			Expect(m.Cache().Len()).To(Equal(0))
			_, ok := m.InstrumentRun(interviewId, "ANTHRO")
			Expect(ok).To(BeFalse())

			second, err := m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).NotTo(BeIdenticalTo(first))
			Expect(second.CurrentStateName()).To(Equal(READY))
		})
	})

	Describe("measuring", func() {
		var ec *stage.ExecutionContext

		BeforeEach(func() {
			var err error
			ec, err = m.StageExecution(interviewId, anthro)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should run a measurement to completion", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(IN_PROGRESS))
			Expect(ec.IsInteractive()).To(BeTrue())

			run, ok := m.InstrumentRun(interviewId, "ANTHRO")
			Expect(ok).To(BeTrue())
			Expect(run.Status).To(Equal(RUN_IN_PROGRESS))
			Expect(run.Attempts).To(Equal(1))

			Expect(perform(ec, action.COMPLETE)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(COMPLETED))
			Expect(ec.IsCompleted()).To(BeTrue())
			Expect(ec.IsFinal()).To(BeTrue())

			run, _ = m.InstrumentRun(interviewId, "ANTHRO")
			Expect(run.Status).To(Equal(RUN_COMPLETED))
			Expect(run.EndedAt).NotTo(BeZero())
		})

		It("should offer COMPLETE to the system only", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(ec.ActionDefinitions().Types()).To(ConsistOf(action.INTERRUPT, action.STOP))
			Expect(ec.SystemActionDefinitions().Types()).To(ConsistOf(action.COMPLETE))
		})

		It("should interrupt and resume the same run", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(perform(ec, action.INTERRUPT)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(INTERRUPTED))

			run, _ := m.InstrumentRun(interviewId, "ANTHRO")
			Expect(run.Status).To(Equal(RUN_INTERRUPTED))

			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(IN_PROGRESS))

			run, _ = m.InstrumentRun(interviewId, "ANTHRO")
			Expect(run.Status).To(Equal(RUN_IN_PROGRESS))
			Expect(run.Attempts).To(Equal(1))
		})

		It("should require a comment to cancel a measurement", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(perform(ec, action.STOP)).To(HaveOccurred())
			Expect(ec.CurrentStateName()).To(Equal(IN_PROGRESS))

			a := action.New(interviewId, "ANTHRO", action.STOP, "operator")
			a.Comment = "participant felt unwell"
			Expect(ec.Perform(ctx, a)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(READY))

			run, _ := m.InstrumentRun(interviewId, "ANTHRO")
			Expect(run.Status).To(Equal(RUN_CANCELED))
		})

		It("should count a new attempt after a cancel", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(ec.Fire(ctx, sm.CANCEL)).To(Succeed())
			Expect(perform(ec, action.EXECUTE)).To(Succeed())

			run, _ := m.InstrumentRun(interviewId, "ANTHRO")
			Expect(run.Attempts).To(Equal(2))
		})

		It("should only skip with a known reason", func() {
			a := action.New(interviewId, "ANTHRO", action.SKIP, "operator")
			a.Reason = "tired"
			Expect(ec.Perform(ctx, a)).To(HaveOccurred())

			a.Reason = "participantRefused"
			Expect(ec.Perform(ctx, a)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(SKIPPED))
			Expect(ec.IsFinal()).To(BeTrue())
			Expect(ec.IsCompleted()).To(BeFalse())

			Expect(perform(ec, action.STOP)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(READY))
		})

		It("should reject actions the current state does not offer", func() {
			err := perform(ec, action.INTERRUPT)
			var notAllowed *stage.ActionNotAllowedError
			Expect(err).To(BeAssignableToTypeOf(notAllowed))
			Expect(ec.CurrentStateName()).To(Equal(READY))
		})

		It("should go back to waiting when a completed stage is invalidated", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			Expect(perform(ec, action.COMPLETE)).To(Succeed())
			Expect(ec.Fire(ctx, sm.INVALID)).To(Succeed())
			Expect(ec.CurrentStateName()).To(Equal(WAITING))

			run, _ := m.InstrumentRun(interviewId, "ANTHRO")
			Expect(run.Status).To(Equal(RUN_CANCELED))
		})

		It("should ignore dependency events while measuring", func() {
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
			ec.CastEvent(sm.INVALID)
			Expect(ec.CurrentStateName()).To(Equal(IN_PROGRESS))
			Expect(stage.IsUnmapped(ec.Fire(ctx, sm.VALID))).To(BeTrue())
		})
	})

	Describe("dependent stages", func() {
		It("should become ready once the dependency is validated", func() {
			ec, err := m.StageExecution(interviewId, grip)
			Expect(err).NotTo(HaveOccurred())
			Expect(perform(ec, action.EXECUTE)).To(HaveOccurred())

			ec.CastEvent(sm.VALID)
			Expect(ec.CurrentStateName()).To(Equal(READY))
			Expect(perform(ec, action.EXECUTE)).To(Succeed())
		})
	})
})
