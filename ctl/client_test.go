package ctl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/obiba/onyx/core"
	"github.com/obiba/onyx/core/eventbus"
	"github.com/obiba/onyx/core/interview"
	"github.com/obiba/onyx/core/module"
	"github.com/obiba/onyx/core/module/jade"
	"github.com/obiba/onyx/core/module/marble"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/store"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const catalogueYAML = `
stages:
  - name: CON
    module: marble
    label: Consent
  - name: ANTHRO
    module: jade
    label: Anthropometry
    dependsOn: completed("CON")
`

var _ = Describe("client", func() {
	var (
		ctx    context.Context
		server *httptest.Server
		bus    *eventbus.LocalBus
		client *Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		catalogue, err := stage.ParseYAML([]byte(catalogueYAML))
		Expect(err).NotTo(HaveOccurred())
		modules := module.Modules{
			jade.Name:   jade.New(),
			marble.Name: marble.New(),
		}
		bus = eventbus.New()
		manager := interview.NewManager(catalogue, modules, store.NewMemoryStore(), bus)
		server = httptest.NewServer(core.NewRouter(manager, modules.Names()))

		client, err = NewClient(server.Listener.Addr().String(), server.Client())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
		bus.Close()
	})

	It("accepts endpoints with or without a scheme", func() {
		c, err := NewClient("127.0.0.1:47500", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.base.String()).To(Equal("http://127.0.0.1:47500"))

		c, err = NewClient("https://onyx.example.org/api/", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.base.Scheme).To(Equal("https"))
	})

	It("reads the instance info and catalogue", func() {
		info, err := client.GetInfo(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Stages).To(Equal([]string{"CON", "ANTHRO"}))

		stages, err := client.GetStages(ctx, "C*")
		Expect(err).NotTo(HaveOccurred())
		Expect(stages).To(HaveLen(1))
		Expect(stages[0].Module).To(Equal(marble.Name))
	})

	It("drives an interview end to end", func() {
		itw, err := client.CreateInterview(ctx, "P001", "alice")
		Expect(err).NotTo(HaveOccurred())
		id := itw.Id.String()

		statuses, err := client.GetStageStatuses(ctx, id, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(statuses).To(HaveLen(2))

		status, err := client.DoAction(ctx, id, "CON", ActionRequest{Type: "EXECUTE", User: "alice"})
		Expect(err).NotTo(HaveOccurred())
		Expect(status.State).To(Equal(marble.IN_PROGRESS))

		status, err = client.DoAction(ctx, id, "CON", ActionRequest{Type: "COMPLETE", User: "alice", Reason: marble.REASON_ACCEPTED})
		Expect(err).NotTo(HaveOccurred())
		Expect(status.State).To(Equal(marble.COMPLETED))

		status, err = client.GetStageStatus(ctx, id, "ANTHRO")
		Expect(err).NotTo(HaveOccurred())
		Expect(status.State).To(Equal(jade.READY))

		actions, err := client.GetActions(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(actions).To(HaveLen(2))

		interviews, err := client.GetInterviews(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(interviews).To(HaveLen(1))

		closed, err := client.CloseInterview(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(closed.Status).To(Equal(store.CLOSED))

		Expect(client.DeleteInterview(ctx, id)).To(Succeed())
		_, err = client.GetInterview(ctx, id)
		Expect(err).To(HaveOccurred())
	})

	It("surfaces the core's error messages", func() {
		itw, err := client.CreateInterview(ctx, "P001", "alice")
		Expect(err).NotTo(HaveOccurred())

		_, err = client.DoAction(ctx, itw.Id.String(), "CON", ActionRequest{Type: "SKIP"})
		var apiErr *ApiError
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusConflict))
		Expect(apiErr.Message).To(ContainSubstring("not allowed"))

		_, err = client.CancelInterview(ctx, itw.Id.String())
		Expect(err).NotTo(HaveOccurred())
		_, err = client.CancelInterview(ctx, itw.Id.String())
		Expect(errors.As(err, &apiErr)).To(BeTrue())
		Expect(apiErr.StatusCode).To(Equal(http.StatusConflict))
	})
})
