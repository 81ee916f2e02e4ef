package event

import (
	"sync"
	"time"

	"github.com/obiba/onyx/common/utils/uid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

var _ = Describe("Writer", func() {
	When("no kafka endpoint is configured", func() {
		It("returns a writer that drops everything", func() {
			viper.Set("kafkaEndpoints", []string{})
			w := NewWriterWithTopic("onyx.test")
			Expect(w).To(BeAssignableToTypeOf(&DummyWriter{}))
			w.WriteEvent(NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
			w.Close()
		})
	})

	When("an event is written", func() {
		It("is encoded as a JSON envelope keyed by interview", func() {
			var (
				mu       sync.Mutex
				received []kafka.Message
			)
			w := newKafkaWriter(&kafka.Writer{Topic: "onyx.test"}, func(messages []kafka.Message) {
				mu.Lock()
				defer mu.Unlock()
				received = append(received, messages...)
			})

			interviewId := uid.ID("itw-1")
			w.WriteEventWithTimestamp(
				NewStageTransitionEvent(interviewId, "ANTHRO", "jade", "START", "ready", "inProgress"),
				time.UnixMilli(1700000000000))
			w.Close()

			mu.Lock()
			defer mu.Unlock()
			Expect(received).To(HaveLen(1))
			Expect(string(received[0].Key)).To(Equal("itw-1"))

			env, err := Unmarshal(received[0].Value)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Timestamp).To(Equal(int64(1700000000000)))
			Expect(env.Name).To(Equal("StageTransitionEvent"))
			Expect(env.Transition.Dst).To(Equal("inProgress"))
			Expect(env.Payload().GetInterviewId()).To(Equal(interviewId))
		})

		It("flushes every queued event on close", func() {
			var (
				mu    sync.Mutex
				count int
			)
			w := newKafkaWriter(&kafka.Writer{Topic: "onyx.test"}, func(messages []kafka.Message) {
				mu.Lock()
				defer mu.Unlock()
				count += len(messages)
			})
			for i := 0; i < 250; i++ {
				w.WriteEvent(NewInterviewEvent("itw", "P1", "alice", "IN_PROGRESS"))
			}
			w.Close()

			mu.Lock()
			defer mu.Unlock()
			Expect(count).To(Equal(250))
		})

		It("drops events written after close", func() {
			calls := 0
			w := newKafkaWriter(&kafka.Writer{Topic: "onyx.test"}, func(messages []kafka.Message) {
				calls++
			})
			w.Close()
			w.WriteEvent(NewInterviewEvent("itw", "P1", "alice", "CLOSED"))
			w.Close()
			Expect(calls).To(Equal(0))
		})
	})
})
