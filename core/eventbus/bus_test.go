package eventbus

import (
	"sync"

	"github.com/obiba/onyx/common/event"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("local bus", func() {
	var bus *LocalBus

	BeforeEach(func() {
		bus = New()
	})

	AfterEach(func() {
		bus.Close()
	})

	It("should deliver synchronously in subscription order", func() {
		var got []string
		bus.Subscribe(func(e event.Event) { got = append(got, "first:"+e.GetName()) })
		bus.Subscribe(func(e event.Event) { got = append(got, "second:"+e.GetName()) })

		bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
		Expect(got).To(Equal([]string{"first:InterviewEvent", "second:InterviewEvent"}))
	})

	It("should deliver asynchronously in publishing order", func() {
		var (
			mu  sync.Mutex
			got []string
		)
		bus.SubscribeAsync(func(e event.Event) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, e.(*event.StageTransitionEvent).Dst)
		})

		for _, dst := range []string{"inProgress", "interrupted", "inProgress", "completed"} {
			bus.Publish(event.NewStageTransitionEvent("itw", "ANTHRO", "jade", "X", "", dst))
		}
		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), got...)
		}).Should(Equal([]string{"inProgress", "interrupted", "inProgress", "completed"}))
	})

	It("should stop delivering after unsubscribe", func() {
		count := 0
		sub := bus.Subscribe(func(event.Event) { count++ })
		bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
		sub.Unsubscribe()
		sub.Unsubscribe()
		bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "CLOSED"))
		Expect(count).To(Equal(1))
	})

	It("should only drop the subscription that unsubscribed", func() {
		counts := make([]int, 2)
		subs := make([]Subscription, 2)
		for i := range subs {
			i := i
			subs[i] = bus.Subscribe(func(event.Event) { counts[i]++ })
		}
		subs[0].Unsubscribe()
		bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
		Expect(counts).To(Equal([]int{0, 1}))
	})

	It("should wait for asynchronous deliveries on unsubscribe", func() {
		var (
			mu    sync.Mutex
			count int
		)
		sub := bus.SubscribeAsync(func(event.Event) {
			mu.Lock()
			defer mu.Unlock()
			count++
		})
		for i := 0; i < 10; i++ {
			bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
		}
		sub.Unsubscribe()
		bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "CLOSED"))

		mu.Lock()
		defer mu.Unlock()
		Expect(count).To(Equal(10))
	})

	It("should drain asynchronous subscribers on close", func() {
		var (
			mu    sync.Mutex
			count int
		)
		bus.SubscribeAsync(func(event.Event) {
			mu.Lock()
			defer mu.Unlock()
			count++
		})
		for i := 0; i < 50; i++ {
			bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
		}
		bus.Close()

		mu.Lock()
		defer mu.Unlock()
		Expect(count).To(Equal(50))
	})

	It("should ignore publications after close", func() {
		count := 0
		bus.Subscribe(func(event.Event) { count++ })
		bus.Close()
		bus.Publish(event.NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
		Expect(count).To(Equal(0))
	})
})
