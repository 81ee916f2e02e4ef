package module

import (
	"errors"
	"sync"

	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/sm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type namedState struct {
	stage.BaseState
}

func newNamedState(name string, st *stage.Stage) *namedState {
	return &namedState{BaseState: stage.NewBaseState(name, st)}
}

func twoStateBuild(builds *int) BuildFunc {
	var mu sync.Mutex
	return func(interviewId uid.ID, st *stage.Stage) (*stage.ExecutionContext, error) {
		mu.Lock()
		*builds++
		mu.Unlock()
		a, b := newNamedState("a", st), newNamedState("b", st)
		return NewGraph(stage.NewExecutionContext(interviewId, st)).
			Edge(a, sm.START, b).
			Edge(b, sm.CANCEL, a).
			Initial(a).
			Build()
	}
}

var _ = Describe("module", func() {
	Describe("cache", func() {
		var (
			cache  *Cache
			builds int
			st     *stage.Stage
		)

		BeforeEach(func() {
			builds = 0
			cache = NewCache("test", twoStateBuild(&builds))
			st = &stage.Stage{Name: "S", Module: "test"}
		})

		It("should build once per interview and stage", func() {
			first, err := cache.Get("i1", st)
			Expect(err).NotTo(HaveOccurred())
			second, err := cache.Get("i1", st)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
			Expect(builds).To(Equal(1))

			_, err = cache.Get("i2", st)
			Expect(err).NotTo(HaveOccurred())
			Expect(builds).To(Equal(2))
			Expect(cache.Len()).To(Equal(2))
			Expect(cache.Interviews()).To(ConsistOf(uid.ID("i1"), uid.ID("i2")))
		})

		It("should build once under concurrent requests", func() {
			var wg sync.WaitGroup
			results := make([]*stage.ExecutionContext, 16)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					ec, err := cache.Get("i1", st)
					Expect(err).NotTo(HaveOccurred())
					results[i] = ec
				}(i)
			}
			wg.Wait()
			for _, ec := range results {
				Expect(ec).To(BeIdenticalTo(results[0]))
			}
			Expect(builds).To(Equal(1))
		})

		It("should purge one interview only", func() {
			_, _ = cache.Get("i1", st)
			_, _ = cache.Get("i1", &stage.Stage{Name: "T", Module: "test"})
			_, _ = cache.Get("i2", st)

			Expect(cache.Purge("i1")).To(Equal(2))
			Expect(cache.Purge("i1")).To(Equal(0))
			_, ok := cache.Lookup("i1", "S")
			Expect(ok).To(BeFalse())
			_, ok = cache.Lookup("i2", "S")
			Expect(ok).To(BeTrue())
		})

		It("should not cache a failed build", func() {
			calls := 0
			failing := NewCache("test", func(uid.ID, *stage.Stage) (*stage.ExecutionContext, error) {
				calls++
				return nil, errors.New("broken instrument")
			})
			_, err := failing.Get("i1", st)
			Expect(err).To(MatchError("broken instrument"))
			_, err = failing.Get("i1", st)
			Expect(err).To(HaveOccurred())
			Expect(calls).To(Equal(2))
			Expect(failing.Len()).To(Equal(0))
			Expect(failing.Interviews()).To(BeEmpty())
		})
	})

	Describe("graph", func() {
		It("should stop at the first error", func() {
			st := &stage.Stage{Name: "S", Module: "test"}
			a, b, c := newNamedState("a", st), newNamedState("b", st), newNamedState("c", st)
			_, err := NewGraph(stage.NewExecutionContext("i1", st)).
				Edge(a, sm.START, b).
				Edge(a, sm.START, c).
				Initial(a).
				Build()
			Expect(err).To(BeAssignableToTypeOf(stage.DuplicateEdgeError{}))
		})
	})

	Describe("registry", func() {
		var builds int

		BeforeEach(func() {
			Reset()
			RegisterModule("beta", func() Module { return NewBase("beta", twoStateBuild(&builds)) })
			RegisterModule("alpha", func() Module { return NewBase("alpha", twoStateBuild(&builds)) })
		})

		AfterEach(func() {
			Reset()
		})

		It("should list registered modules in order", func() {
			Expect(RegisteredModules()).To(Equal([]string{"alpha", "beta"}))
		})

		It("should load every registered module by default", func() {
			ms, err := Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(ms.Names()).To(Equal([]string{"alpha", "beta"}))
		})

		It("should load only the requested modules", func() {
			ms, err := Load("beta")
			Expect(err).NotTo(HaveOccurred())
			Expect(ms.Names()).To(Equal([]string{"beta"}))

			_, err = ms.ForStage(&stage.Stage{Name: "S", Module: "alpha"})
			Expect(err).To(HaveOccurred())
			m, err := ms.ForStage(&stage.Stage{Name: "S", Module: "beta"})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name()).To(Equal("beta"))
		})

		It("should fail on an unknown module", func() {
			_, err := Load("gamma")
			Expect(err).To(MatchError(ContainSubstring("gamma")))
		})

		It("should forget an interview in every module", func() {
			ms, err := Load()
			Expect(err).NotTo(HaveOccurred())
			st := &stage.Stage{Name: "S", Module: "alpha"}
			_, err = ms["alpha"].StageExecution("i1", st)
			Expect(err).NotTo(HaveOccurred())

			ms.ForgetAll("i1")
			Expect(ms["alpha"].(*Base).Cache().Len()).To(Equal(0))
		})
	})
})
