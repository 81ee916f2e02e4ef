package core

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	"github.com/obiba/onyx/common/utils/uid"
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

var _ = Describe("http service", func() {
	var (
		router *mux.Router
		bus    *eventbus.LocalBus
	)

	BeforeEach(func() {
		catalogue, err := stage.ParseYAML([]byte(catalogueYAML))
		Expect(err).NotTo(HaveOccurred())
		modules := module.Modules{
			jade.Name:   jade.New(),
			marble.Name: marble.New(),
		}
		Expect(catalogue.Validate(modules.Names())).To(Succeed())
		bus = eventbus.New()
		manager := interview.NewManager(catalogue, modules, store.NewMemoryStore(), bus)
		Expect(manager.Start(context.Background())).To(Succeed())
		router = NewRouter(manager, modules.Names())
	})

	AfterEach(func() {
		bus.Close()
	})

	call := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var payload bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&payload).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &payload)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	decode := func(rr *httptest.ResponseRecorder, v interface{}) {
		Expect(json.Unmarshal(rr.Body.Bytes(), v)).To(Succeed())
	}

	create := func(participant string) interview.Interview {
		rr := call(http.MethodPost, "/interviews", map[string]string{"participant": participant, "user": "alice"})
		Expect(rr.Code).To(Equal(http.StatusCreated))
		var itw interview.Interview
		decode(rr, &itw)
		return itw
	}

	doAction := func(id uid.ID, stageName string, body map[string]string) *httptest.ResponseRecorder {
		return call(http.MethodPost, "/interviews/"+id.String()+"/stages/"+stageName+"/actions", body)
	}

	It("describes the instance", func() {
		rr := call(http.MethodGet, "/info", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var info Info
		decode(rr, &info)
		Expect(info.Modules).To(ConsistOf("jade", "marble"))
		Expect(info.Stages).To(Equal([]string{"CON", "ANTHRO"}))
	})

	It("lists the catalogue with an optional filter", func() {
		rr := call(http.MethodGet, "/stages?filter=AN*", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var stages []map[string]interface{}
		decode(rr, &stages)
		Expect(stages).To(HaveLen(1))
		Expect(stages[0]["name"]).To(Equal("ANTHRO"))

		Expect(call(http.MethodGet, "/stages?filter=[", nil).Code).To(Equal(http.StatusBadRequest))
	})

	It("creates, lists and fetches interviews", func() {
		itw := create("P001")
		Expect(itw.Status).To(Equal(store.IN_PROGRESS))

		rr := call(http.MethodGet, "/interviews", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var all []interview.Interview
		decode(rr, &all)
		Expect(all).To(HaveLen(1))

		rr = call(http.MethodGet, "/interviews/"+itw.Id.String(), nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var got interview.Interview
		decode(rr, &got)
		Expect(got.Participant).To(Equal("P001"))
	})

	It("rejects a second open interview for a participant", func() {
		create("P001")
		rr := call(http.MethodPost, "/interviews", map[string]string{"participant": "P001"})
		Expect(rr.Code).To(Equal(http.StatusConflict))
	})

	It("requires a participant", func() {
		rr := call(http.MethodPost, "/interviews", map[string]string{"user": "alice"})
		Expect(rr.Code).To(Equal(http.StatusBadRequest))
	})

	It("maps unknown interviews and stages to 404", func() {
		Expect(call(http.MethodGet, "/interviews/"+uid.New().String(), nil).Code).To(Equal(http.StatusNotFound))
		itw := create("P001")
		Expect(call(http.MethodGet, "/interviews/"+itw.Id.String()+"/stages/NOPE", nil).Code).To(Equal(http.StatusNotFound))
	})

	It("rejects malformed interview ids", func() {
		Expect(call(http.MethodGet, "/interviews/!!", nil).Code).To(Equal(http.StatusBadRequest))
	})

	It("reports stage statuses", func() {
		itw := create("P001")
		rr := call(http.MethodGet, "/interviews/"+itw.Id.String()+"/stages", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var statuses []interview.StageStatus
		decode(rr, &statuses)
		Expect(statuses).To(HaveLen(2))
		Expect(statuses[0].State).To(Equal(marble.READY))
		Expect(statuses[1].State).To(Equal(jade.WAITING))

		rr = call(http.MethodGet, "/interviews/"+itw.Id.String()+"/stages?filter=CO*", nil)
		decode(rr, &statuses)
		Expect(statuses).To(HaveLen(1))
	})

	It("performs actions and answers with the new stage status", func() {
		itw := create("P001")

		rr := doAction(itw.Id, "CON", map[string]string{"type": "execute", "user": "alice"})
		Expect(rr.Code).To(Equal(http.StatusOK))
		var status interview.StageStatus
		decode(rr, &status)
		Expect(status.State).To(Equal(marble.IN_PROGRESS))

		rr = doAction(itw.Id, "CON", map[string]string{"type": "COMPLETE", "user": "alice", "reason": marble.REASON_ACCEPTED})
		Expect(rr.Code).To(Equal(http.StatusOK))
		decode(rr, &status)
		Expect(status.State).To(Equal(marble.COMPLETED))

		rr = call(http.MethodGet, "/interviews/"+itw.Id.String()+"/stages/ANTHRO", nil)
		decode(rr, &status)
		Expect(status.State).To(Equal(jade.READY))

		rr = call(http.MethodGet, "/interviews/"+itw.Id.String()+"/actions", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var actions []map[string]interface{}
		decode(rr, &actions)
		Expect(actions).To(HaveLen(2))
		Expect(actions[0]["type"]).To(Equal("EXECUTE"))
	})

	It("maps action failures to 400 and 409", func() {
		itw := create("P001")

		Expect(doAction(itw.Id, "CON", map[string]string{"type": "dance"}).Code).To(Equal(http.StatusBadRequest))
		Expect(doAction(itw.Id, "CON", map[string]string{"type": "STOP"}).Code).To(Equal(http.StatusConflict))

		Expect(doAction(itw.Id, "CON", map[string]string{"type": "EXECUTE"}).Code).To(Equal(http.StatusOK))
		Expect(doAction(itw.Id, "CON", map[string]string{"type": "STOP"}).Code).To(Equal(http.StatusBadRequest))
		Expect(doAction(itw.Id, "CON", map[string]string{"type": "STOP", "comment": "wrong participant"}).Code).To(Equal(http.StatusOK))
	})

	It("closes, cancels and deletes interviews", func() {
		itw := create("P001")
		rr := call(http.MethodPost, "/interviews/"+itw.Id.String()+"/close", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var closed interview.Interview
		decode(rr, &closed)
		Expect(closed.Status).To(Equal(store.CLOSED))

		Expect(doAction(itw.Id, "CON", map[string]string{"type": "EXECUTE"}).Code).To(Equal(http.StatusConflict))
		Expect(call(http.MethodPost, "/interviews/"+itw.Id.String()+"/cancel", nil).Code).To(Equal(http.StatusConflict))

		Expect(call(http.MethodDelete, "/interviews/"+itw.Id.String(), nil).Code).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodGet, "/interviews/"+itw.Id.String(), nil).Code).To(Equal(http.StatusNotFound))
	})

	It("refuses to delete an open interview", func() {
		itw := create("P001")
		Expect(call(http.MethodDelete, "/interviews/"+itw.Id.String(), nil).Code).To(Equal(http.StatusConflict))
	})

	It("filters interviews by status", func() {
		first := create("P001")
		create("P002")
		Expect(call(http.MethodPost, "/interviews/"+first.Id.String()+"/cancel", nil).Code).To(Equal(http.StatusOK))

		var all []interview.Interview
		decode(call(http.MethodGet, "/interviews?status=cancelled", nil), &all)
		Expect(all).To(HaveLen(1))
		Expect(all[0].Participant).To(Equal("P001"))
	})

	It("serves metrics", func() {
		rr := call(http.MethodGet, "/metrics", nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("metrics endpoint", func() {
	It("parses port and path", func() {
		port, path, err := parseMetricsEndpoint("8086/metrics")
		Expect(err).NotTo(HaveOccurred())
		Expect(port).To(Equal(uint16(8086)))
		Expect(path).To(Equal("metrics"))
	})

	It("rejects malformed endpoints", func() {
		_, _, err := parseMetricsEndpoint("metrics")
		Expect(err).To(HaveOccurred())
		_, _, err = parseMetricsEndpoint("99999/metrics")
		Expect(err).To(HaveOccurred())
	})
})
