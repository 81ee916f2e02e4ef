package event

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FifoBuffer", func() {
	When("popping fewer items than the buffer holds", func() {
		It("returns them in order and keeps the rest", func() {
			buffer := NewFifoBuffer[int]()
			buffer.Push(1)
			buffer.Push(2)
			buffer.Push(3)

			Expect(buffer.PopMultiple(2)).To(Equal([]int{1, 2}))
			Expect(buffer.Length()).To(Equal(1))
			Expect(buffer.PopMultiple(5)).To(Equal([]int{3}))
			Expect(buffer.Length()).To(Equal(0))
		})
	})

	When("the buffer is empty", func() {
		It("blocks until something is pushed", func() {
			buffer := NewFifoBuffer[int]()
			done := make(chan []int)
			go func() {
				done <- buffer.PopMultiple(10)
			}()

			Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
			buffer.Push(7)
			Eventually(done).Should(Receive(Equal([]int{7})))
		})

		It("unblocks on release", func() {
			buffer := NewFifoBuffer[int]()
			done := make(chan []int)
			go func() {
				done <- buffer.PopMultiple(10)
			}()

			buffer.Release()
			Eventually(done).Should(Receive(BeEmpty()))
		})
	})

	When("the buffer is released with items left", func() {
		It("drains them before returning nothing", func() {
			buffer := NewFifoBuffer[string]()
			buffer.Push("a")
			buffer.Release()

			Expect(buffer.PopMultiple(10)).To(Equal([]string{"a"}))
			Expect(buffer.PopMultiple(10)).To(BeEmpty())
		})
	})
})
