package event

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"
)

var _ = Describe("Reader", func() {
	When("converting a kafka message to an event", func() {
		It("decodes the JSON envelope", func() {
			env, err := Wrap(NewActionEvent("itw", "act", "CON", "EXECUTE", "bob", "inProgress", nil), time.Now())
			Expect(err).NotTo(HaveOccurred())
			data, err := env.Marshal()
			Expect(err).NotTo(HaveOccurred())

			decoded, err := kafkaMessageToEnvelope(kafka.Message{Value: data})
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded.Action).NotTo(BeNil())
			Expect(decoded.Action.User).To(Equal("bob"))
			Expect(decoded.Action.Error).To(BeEmpty())
		})

		It("rejects an envelope without payload", func() {
			_, err := kafkaMessageToEnvelope(kafka.Message{Value: []byte(`{"name":"x"}`)})
			Expect(err).To(HaveOccurred())
		})

		It("rejects garbage", func() {
			_, err := kafkaMessageToEnvelope(kafka.Message{Value: []byte("not json")})
			Expect(err).To(HaveOccurred())
		})
	})
})
