// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by server commands.
// Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// serverClient provides HTTP access to a running memlayer server.
type serverClient struct {
	baseURL string
	http    *http.Client
}

// newServerClient creates a client targeting the given host:port address.
func newServerClient(addr string) *serverClient {
	return &serverClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *serverClient) getJSON(path string, dest interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return memerr.New(memerr.CodeCLIServerNotRunning, "server is not running (connection refused)")
		}
		return memerr.Errorf(memerr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return memerr.Errorf(memerr.CodeCLIRequestFailure, "server returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return memerr.Errorf(memerr.CodeCLIResponseInvalid, "invalid response: %w", err)
	}
	return nil
}

// postJSON performs a POST request with a JSON body and decodes the JSON
// response into dest. dest may be nil when the response body is irrelevant.
func (c *serverClient) postJSON(path string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return memerr.Errorf(memerr.CodeCLIRequestFailure, "encoding request: %w", err)
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		if isDialError(err) {
			return memerr.New(memerr.CodeCLIServerNotRunning, "server is not running (connection refused)")
		}
		return memerr.Errorf(memerr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return memerr.Errorf(memerr.CodeCLIRequestFailure, "server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return memerr.Errorf(memerr.CodeCLIResponseInvalid, "invalid response: %w", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
