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

// Package ctl implements the client side of the Onyx HTTP API.
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/obiba/onyx/common/logger"
	"github.com/obiba/onyx/core"
	"github.com/obiba/onyx/core/interview"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "ctl")

// ApiError is an error answered by the core.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient accepts an endpoint as HOST:PORT or as a full URL.
func NewClient(endpoint string, httpClient *http.Client) (*Client, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("bad endpoint %q: %w", endpoint, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: base, http: httpClient}, nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, in interface{}, out interface{}) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	log.WithField("method", method).
		WithField("url", u.String()).
		Debug("calling core")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &ApiError{StatusCode: resp.StatusCode, Message: resp.Status}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && len(payload.Error) > 0 {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func filterQuery(filter string) url.Values {
	if len(filter) == 0 {
		return nil
	}
	return url.Values{"filter": []string{filter}}
}

func (c *Client) GetInfo(ctx context.Context) (info *core.Info, err error) {
	err = c.call(ctx, http.MethodGet, "/info", nil, nil, &info)
	return
}

func (c *Client) GetStages(ctx context.Context, filter string) (stages []*stage.Stage, err error) {
	err = c.call(ctx, http.MethodGet, "/stages", filterQuery(filter), nil, &stages)
	return
}

func (c *Client) CreateInterview(ctx context.Context, participant, user string) (itw *interview.Interview, err error) {
	in := map[string]string{"participant": participant, "user": user}
	err = c.call(ctx, http.MethodPost, "/interviews", nil, in, &itw)
	return
}

func (c *Client) GetInterviews(ctx context.Context, status string) (interviews []*interview.Interview, err error) {
	var query url.Values
	if len(status) > 0 {
		query = url.Values{"status": []string{status}}
	}
	err = c.call(ctx, http.MethodGet, "/interviews", query, nil, &interviews)
	return
}

func (c *Client) GetInterview(ctx context.Context, id string) (itw *interview.Interview, err error) {
	err = c.call(ctx, http.MethodGet, "/interviews/"+url.PathEscape(id), nil, nil, &itw)
	return
}

func (c *Client) CloseInterview(ctx context.Context, id string) (itw *interview.Interview, err error) {
	err = c.call(ctx, http.MethodPost, "/interviews/"+url.PathEscape(id)+"/close", nil, nil, &itw)
	return
}

func (c *Client) CancelInterview(ctx context.Context, id string) (itw *interview.Interview, err error) {
	err = c.call(ctx, http.MethodPost, "/interviews/"+url.PathEscape(id)+"/cancel", nil, nil, &itw)
	return
}

func (c *Client) DeleteInterview(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/interviews/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) GetStageStatuses(ctx context.Context, id string, filter string) (statuses []interview.StageStatus, err error) {
	err = c.call(ctx, http.MethodGet, "/interviews/"+url.PathEscape(id)+"/stages", filterQuery(filter), nil, &statuses)
	return
}

func (c *Client) GetStageStatus(ctx context.Context, id string, stageName string) (status *interview.StageStatus, err error) {
	err = c.call(ctx, http.MethodGet, "/interviews/"+url.PathEscape(id)+"/stages/"+url.PathEscape(stageName), nil, nil, &status)
	return
}

// ActionRequest is what DoAction sends; Type is an action type name such
// as EXECUTE or SKIP.
type ActionRequest struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Comment string `json:"comment,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (c *Client) DoAction(ctx context.Context, id string, stageName string, req ActionRequest) (status *interview.StageStatus, err error) {
	err = c.call(ctx, http.MethodPost, "/interviews/"+url.PathEscape(id)+"/stages/"+url.PathEscape(stageName)+"/actions", nil, req, &status)
	return
}

func (c *Client) GetActions(ctx context.Context, id string) (actions []*action.Action, err error) {
	err = c.call(ctx, http.MethodGet, "/interviews/"+url.PathEscape(id)+"/actions", nil, nil, &actions)
	return
}
