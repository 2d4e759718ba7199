// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package api exposes a Hostlink controller over a small JSON REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Thermoquad/hostlink/pkg/device"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
)

// Controller is the device surface served by the API. *device.PlcDevice
// implements it.
type Controller interface {
	Node() hostlink.NodeID
	Status(ctx context.Context) (hostlink.Status, error)
	Test(ctx context.Context, data string) error
	ReadArea(ctx context.Context, area hostlink.CommandKind, address, count int) ([]uint16, error)
	Send(ctx context.Context, cmd hostlink.Command) (hostlink.Message, error)
	Stats() hostlink.Statistics
	ResetStats()
}

// StatusResponse is the JSON response for a status read.
type StatusResponse struct {
	Node      string `json:"node"`
	hostlink.Status
	Timestamp string `json:"timestamp"`
}

// TestRequest is the JSON request for a TEST exchange.
type TestRequest struct {
	Data string `json:"data"`
}

// TestResponse is the JSON response after a TEST exchange.
type TestResponse struct {
	Node    string `json:"node"`
	Data    string `json:"data"`
	Success bool   `json:"success"`
}

// ReadResponse is the JSON response for an area read.
type ReadResponse struct {
	Node    string   `json:"node"`
	Area    string   `json:"area"`
	Address int      `json:"address"`
	Words   []uint16 `json:"words"`
	Hex     []string `json:"hex"`
}

// SendRequest is the JSON request for a raw exchange.
type SendRequest struct {
	Header string `json:"header"`
	Params string `json:"params"`
}

// SendResponse is the JSON response for a raw exchange.
type SendResponse struct {
	Node    string `json:"node"`
	Command string `json:"command"`
	Header  string `json:"header"`
	Params  string `json:"params"`
	EndCode string `json:"end_code,omitempty"`
	Frame   string `json:"frame"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// handlers holds the API handler functions.
type handlers struct {
	ctrl Controller
}

// NewRouter creates the REST API router.
func NewRouter(ctrl Controller) chi.Router {
	r := chi.NewRouter()
	h := &handlers{ctrl: ctrl}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Post("/test", h.handleTest)
		r.Get("/read/{area}/{address}/{count}", h.handleRead)
		r.Post("/send", h.handleSend)
		r.Get("/stats", h.handleStats)
		r.Post("/stats/reset", h.handleResetStats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Kind: kind})
}

// writeDeviceError maps an exchange failure to an HTTP status.
func writeDeviceError(w http.ResponseWriter, err error) {
	var de *device.Error
	if !errors.As(err, &de) {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	status := http.StatusBadGateway
	switch de.Kind {
	case device.KindTimeout:
		status = http.StatusGatewayTimeout
	case device.KindCanceled:
		status = http.StatusServiceUnavailable
	case device.KindController:
		status = http.StatusConflict
	}
	writeError(w, status, err.Error(), de.Kind.String())
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.ctrl.Status(r.Context())
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, StatusResponse{
		Node:      h.ctrl.Node().String(),
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) handleTest(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}

	if err := h.ctrl.Test(r.Context(), req.Data); err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, TestResponse{
		Node:    h.ctrl.Node().String(),
		Data:    req.Data,
		Success: true,
	})
}

func (h *handlers) handleRead(w http.ResponseWriter, r *http.Request) {
	areaName := chi.URLParam(r, "area")
	area, err := hostlink.ParseArea(areaName)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	}

	address, err := strconv.Atoi(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "address must be a number", "")
		return
	}
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "count must be a number", "")
		return
	}

	words, err := h.ctrl.ReadArea(r.Context(), area, address, count)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	resp := ReadResponse{
		Node:    h.ctrl.Node().String(),
		Area:    areaName,
		Address: address,
		Words:   words,
		Hex:     make([]string, len(words)),
	}
	for i, word := range words {
		resp.Hex[i] = hostlink.FormatWords([]uint16{word})
	}
	writeJSON(w, resp)
}

func (h *handlers) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return
	}

	cmd, err := hostlink.NewRawCommand(req.Header, hostlink.MessageParams(req.Params))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	msg, err := h.ctrl.Send(r.Context(), cmd)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	resp := SendResponse{
		Node:    msg.Node().String(),
		Command: msg.Kind().String(),
		Header:  msg.Header(),
		Params:  msg.Params().String(),
		Frame:   string(msg.Bytes()),
	}
	if code, ok := msg.EndCode(); ok && msg.Kind() != hostlink.CmdTest {
		resp.EndCode = string(code)
	}
	writeJSON(w, resp)
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.ctrl.Stats())
}

func (h *handlers) handleResetStats(w http.ResponseWriter, r *http.Request) {
	h.ctrl.ResetStats()
	w.WriteHeader(http.StatusNoContent)
}
