/*
 * === This file is part of OBiBa Onyx ===
 *
 * Copyright 2026 OBiBa and copyright holders of Onyx.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/k0kubun/pp"
	"github.com/obiba/onyx/common/product"
	"github.com/obiba/onyx/common/utils/uid"
	"github.com/obiba/onyx/core/interview"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/obiba/onyx/core/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

type HttpService struct {
	manager *interview.Manager
	modules []string
}

type apiError struct {
	Error string `json:"error"`
}

type createInterviewRequest struct {
	Participant string `json:"participant"`
	User        string `json:"user"`
}

type actionRequest struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Info describes the running instance.
type Info struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Modules   []string `json:"modules"`
	Stages    []string `json:"stages"`
	StartedAt int64    `json:"startedAt"`
}

var startedAt = time.Now()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		out, _ = json.Marshal(apiError{Error: err.Error()})
		_, _ = fmt.Fprintln(w, string(out))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, string(out))
}

// statusOf maps the errors of the interview manager onto HTTP statuses.
func statusOf(err error) int {
	var (
		notFound      store.InterviewNotFoundError
		stageNotFound stage.StageNotFoundError
		hasInterview  interview.ParticipantHasInterviewError
		notOpen       interview.InterviewNotOpenError
		notAllowed    *stage.ActionNotAllowedError
		canceled      *stage.CanceledTransitionError
		unmapped      *stage.UnmappedTransitionError
		invalid       *action.InvalidError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &stageNotFound):
		return http.StatusNotFound
	case errors.As(err, &hasInterview), errors.As(err, &notOpen),
		errors.As(err, &notAllowed), errors.As(err, &canceled), errors.As(err, &unmapped),
		errors.Is(err, interview.ErrInterviewOpen):
		return http.StatusConflict
	case errors.As(err, &invalid), errors.Is(err, stage.ErrBadFilter):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (httpsvc *HttpService) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	entry := log.WithPrefix("http").
		WithField("method", r.Method).
		WithField("path", r.URL.Path).
		WithField("status", status).
		WithError(err)
	if status == http.StatusInternalServerError {
		entry.WithField("ppErr", pp.Sprint(err)).
			Error("request failed")
	} else {
		entry.Debug("request refused")
	}
	writeJSON(w, status, apiError{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: fmt.Sprintf(format, args...)})
}

func interviewId(w http.ResponseWriter, r *http.Request) (uid.ID, bool) {
	id, err := uid.FromString(mux.Vars(r)["id"])
	if err != nil {
		badRequest(w, "invalid interview id: %s", err)
		return uid.NilID(), false
	}
	return id, true
}

func (httpsvc *HttpService) ApiInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Info{
		Name:      product.PRETTY_FULLNAME,
		Version:   product.VERSION_BUILD,
		Modules:   httpsvc.modules,
		Stages:    httpsvc.manager.Catalogue().Names(),
		StartedAt: startedAt.UnixMilli(),
	})
}

func (httpsvc *HttpService) ApiListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := httpsvc.manager.Catalogue().Filtered(r.URL.Query().Get("filter"))
	if err != nil {
		badRequest(w, "invalid filter: %s", err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

func (httpsvc *HttpService) ApiCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "cannot decode request: %s", err)
		return
	}
	req.Participant = strings.TrimSpace(req.Participant)
	if len(req.Participant) == 0 {
		badRequest(w, "participant is required")
		return
	}
	itw, err := httpsvc.manager.Create(r.Context(), req.Participant, req.User)
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itw)
}

func (httpsvc *HttpService) ApiListInterviews(w http.ResponseWriter, r *http.Request) {
	interviews, err := httpsvc.manager.List(r.Context())
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	if status := r.URL.Query().Get("status"); len(status) > 0 {
		filtered := make([]*interview.Interview, 0, len(interviews))
		for _, itw := range interviews {
			if strings.EqualFold(string(itw.Status), status) {
				filtered = append(filtered, itw)
			}
		}
		interviews = filtered
	}
	writeJSON(w, http.StatusOK, interviews)
}

func (httpsvc *HttpService) ApiGetInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	itw, err := httpsvc.manager.Get(r.Context(), id)
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itw)
}

func (httpsvc *HttpService) ApiDeleteInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	if err := httpsvc.manager.Delete(r.Context(), id); err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (httpsvc *HttpService) ApiCloseInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	itw, err := httpsvc.manager.Close(r.Context(), id)
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itw)
}

func (httpsvc *HttpService) ApiCancelInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	itw, err := httpsvc.manager.Cancel(r.Context(), id)
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itw)
}

func (httpsvc *HttpService) ApiListStageStatuses(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	statuses, err := httpsvc.manager.StageStatuses(r.Context(), id, r.URL.Query().Get("filter"))
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (httpsvc *HttpService) ApiGetStageStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	status, err := httpsvc.manager.StageStatus(r.Context(), id, mux.Vars(r)["stage"])
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ApiDoAction performs an action and answers with the resulting stage
// status.
func (httpsvc *HttpService) ApiDoAction(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	stageName := mux.Vars(r)["stage"]

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "cannot decode request: %s", err)
		return
	}
	t, err := action.TypeFromString(req.Type)
	if err != nil {
		badRequest(w, "%s", err)
		return
	}

	a := &action.Action{
		Type:    t,
		User:    req.User,
		Comment: req.Comment,
		Reason:  req.Reason,
	}
	if err = httpsvc.manager.DoAction(r.Context(), id, stageName, a); err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	status, err := httpsvc.manager.StageStatus(r.Context(), id, stageName)
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (httpsvc *HttpService) ApiListActions(w http.ResponseWriter, r *http.Request) {
	id, ok := interviewId(w, r)
	if !ok {
		return
	}
	actions, err := httpsvc.manager.Actions(r.Context(), id)
	if err != nil {
		httpsvc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// NewRouter wires the HTTP API of the interview manager.
func NewRouter(manager *interview.Manager, modules []string) *mux.Router {
	router := mux.NewRouter()
	httpsvc := &HttpService{
		manager: manager,
		modules: modules,
	}

	router.HandleFunc("/info", httpsvc.ApiInfo).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// GET /stages?filter={glob}
	apiStages := router.PathPrefix("/stages").Subrouter()
	apiStages.HandleFunc("", httpsvc.ApiListStages).Methods(http.MethodGet)
	apiStages.HandleFunc("/", httpsvc.ApiListStages).Methods(http.MethodGet)

	apiInterviews := router.PathPrefix("/interviews").Subrouter()
	apiInterviews.HandleFunc("", httpsvc.ApiListInterviews).Methods(http.MethodGet)
	apiInterviews.HandleFunc("/", httpsvc.ApiListInterviews).Methods(http.MethodGet)
	apiInterviews.HandleFunc("", httpsvc.ApiCreateInterview).Methods(http.MethodPost)
	apiInterviews.HandleFunc("/", httpsvc.ApiCreateInterview).Methods(http.MethodPost)

	apiInterview := router.PathPrefix("/interviews/{id}").Subrouter()
	apiInterview.HandleFunc("", httpsvc.ApiGetInterview).Methods(http.MethodGet)
	apiInterview.HandleFunc("", httpsvc.ApiDeleteInterview).Methods(http.MethodDelete)
	apiInterview.HandleFunc("/close", httpsvc.ApiCloseInterview).Methods(http.MethodPost)
	apiInterview.HandleFunc("/cancel", httpsvc.ApiCancelInterview).Methods(http.MethodPost)
	apiInterview.HandleFunc("/actions", httpsvc.ApiListActions).Methods(http.MethodGet)
	// GET /interviews/{id}/stages?filter={glob}
	apiInterview.HandleFunc("/stages", httpsvc.ApiListStageStatuses).Methods(http.MethodGet)
	apiInterview.HandleFunc("/stages/{stage}", httpsvc.ApiGetStageStatus).Methods(http.MethodGet)
	apiInterview.HandleFunc("/stages/{stage}/actions", httpsvc.ApiDoAction).Methods(http.MethodPost)

	return router
}

func NewHttpService(manager *interview.Manager, modules []string) *http.Server {
	return &http.Server{
		Handler:      NewRouter(manager, modules),
		Addr:         ":" + strconv.Itoa(viper.GetInt("controlPort")),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
}
