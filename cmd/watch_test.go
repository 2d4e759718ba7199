// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/hostlink/pkg/device"
	"github.com/Thermoquad/hostlink/pkg/hostlink"
	"github.com/Thermoquad/hostlink/pkg/publish"
)

type fakeWatchDevice struct {
	status hostlink.Status
	err    error
	tests  []string
	resets int
}

func (f *fakeWatchDevice) Node() hostlink.NodeID { return hostlink.NodeIDUnchecked(4) }

func (f *fakeWatchDevice) Status(context.Context) (hostlink.Status, error) {
	return f.status, f.err
}

func (f *fakeWatchDevice) Test(_ context.Context, data string) error {
	f.tests = append(f.tests, data)
	return f.err
}

func (f *fakeWatchDevice) Stats() hostlink.Statistics { return *hostlink.NewStatistics() }

func (f *fakeWatchDevice) ResetStats() { f.resets++ }

type fakeSink struct {
	mu   sync.Mutex
	msgs []publish.StatusMessage
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Publish(_ context.Context, msg publish.StatusMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func runStatus8000() hostlink.Status {
	return hostlink.Status{
		Mode:   hostlink.ModeRun,
		Memory: hostlink.StatusMemory{Size: 8000},
	}
}

func messages(events []eventLogEntry) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.message
	}
	return out
}

func TestStatusEvents(t *testing.T) {
	base := runStatus8000()

	tests := []struct {
		name      string
		prev      *hostlink.Status
		wasOnline bool
		cur       func() hostlink.Status
		want      []string
		errors    int
	}{
		{
			name: "first poll",
			cur:  runStatus8000,
			want: []string{"Controller online"},
		},
		{
			name:      "no change",
			prev:      &base,
			wasOnline: true,
			cur:       runStatus8000,
			want:      nil,
		},
		{
			name:      "mode change",
			prev:      &base,
			wasOnline: true,
			cur: func() hostlink.Status {
				s := runStatus8000()
				s.Mode = hostlink.ModeProgram
				return s
			},
			want: []string{"Mode changed: RUN -> PROGRAM"},
		},
		{
			name:      "alarm raised",
			prev:      &base,
			wasOnline: true,
			cur: func() hostlink.Status {
				s := runStatus8000()
				s.Memory.FatalError = true
				return s
			},
			want:   []string{"Fatal error raised"},
			errors: 1,
		},
		{
			name:      "back online",
			prev:      &base,
			wasOnline: false,
			cur:       runStatus8000,
			want:      []string{"Controller back online"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := statusEvents(tt.prev, tt.wasOnline, tt.cur())
			got := messages(events)
			if len(got) != len(tt.want) {
				t.Fatalf("events = %q, want %q", got, tt.want)
			}
			errCount := 0
			for i, e := range events {
				if !strings.HasPrefix(got[i], tt.want[i]) {
					t.Errorf("event %d = %q, want prefix %q", i, got[i], tt.want[i])
				}
				if e.isError {
					errCount++
				}
			}
			if errCount != tt.errors {
				t.Errorf("%d error events, want %d", errCount, tt.errors)
			}
		})
	}
}

func TestStatusEvents_AlarmCleared(t *testing.T) {
	prev := runStatus8000()
	prev.Memory.FALSGenerated = true

	events := statusEvents(&prev, true, runStatus8000())
	if len(events) != 1 || events[0].message != "FALS cleared" || events[0].isError {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestWatchModel_PollPublishes(t *testing.T) {
	dev := &fakeWatchDevice{status: runStatus8000()}
	sink := &fakeSink{}
	fanout := publish.NewFanout(nil, sink)

	m := initialWatchModel(context.Background(), dev, fanout, "test", time.Second)
	res, ok := m.pollCmd()().(pollResultMsg)
	if !ok {
		t.Fatal("pollCmd did not return a pollResultMsg")
	}
	if res.err != nil || res.publishErr != nil {
		t.Fatalf("unexpected errors: %v, %v", res.err, res.publishErr)
	}

	if len(sink.msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(sink.msgs))
	}
	if msg := sink.msgs[0]; msg.Node != "04" || !msg.Online || msg.Mode != "RUN" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestWatchModel_ApplyPoll(t *testing.T) {
	dev := &fakeWatchDevice{}
	m := initialWatchModel(context.Background(), dev, nil, "test", time.Second)

	m.applyPoll(pollResultMsg{status: runStatus8000(), at: time.Now()})
	if !m.online || m.status == nil || m.status.Mode != hostlink.ModeRun {
		t.Fatalf("poll not applied: online=%v status=%v", m.online, m.status)
	}

	timeout := &device.Error{Op: "status", Kind: device.KindTimeout, Err: device.ErrTimeout}
	m.applyPoll(pollResultMsg{err: timeout, at: time.Now()})
	if m.online {
		t.Error("controller should be offline after a failed poll")
	}
	if !errors.Is(m.lastErr, device.ErrTimeout) {
		t.Errorf("lastErr = %v", m.lastErr)
	}

	got := messages(m.eventLog)
	if len(got) != 3 || got[1] != "Controller offline" || !strings.HasPrefix(got[2], "POLL:") {
		t.Errorf("unexpected log: %q", got)
	}
	if m.logCount != 3 {
		t.Errorf("logCount = %d", m.logCount)
	}
}

func TestWatchModel_LogTrimmed(t *testing.T) {
	m := initialWatchModel(context.Background(), &fakeWatchDevice{}, nil, "test", time.Second)
	for i := 0; i < m.maxLogEntries+10; i++ {
		m.addLogEntry("event", false)
	}
	if len(m.eventLog) != m.maxLogEntries {
		t.Errorf("log has %d entries, want %d", len(m.eventLog), m.maxLogEntries)
	}
	if m.logCount != m.maxLogEntries+10 {
		t.Errorf("logCount = %d", m.logCount)
	}
}

func TestWatchModel_Keys(t *testing.T) {
	dev := &fakeWatchDevice{}
	var model tea.Model = initialWatchModel(context.Background(), dev, nil, "test", time.Second)

	key := func(s string) {
		var msg tea.KeyMsg
		switch s {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		var cmd tea.Cmd
		model, cmd = model.Update(msg)
		if s == "enter" && cmd != nil {
			model, _ = model.Update(cmd())
		}
	}

	key("p")
	if !model.(watchModel).paused {
		t.Error("p should pause polling")
	}
	if _, cmd := model.Update(watchTickMsg(time.Now())); cmd == nil {
		t.Error("a paused tick should still schedule the next tick")
	}

	key("r")
	if dev.resets != 1 {
		t.Errorf("r should reset statistics, resets=%d", dev.resets)
	}

	key("t")
	if !model.(watchModel).entering {
		t.Fatal("t should open the test input")
	}
	key("enter")
	if model.(watchModel).entering {
		t.Error("enter should close the test input")
	}
	if len(dev.tests) != 1 || dev.tests[0] != "HOSTLINK TEST" {
		t.Errorf("unexpected tests sent: %q", dev.tests)
	}
}

func TestWatchModel_View(t *testing.T) {
	m := initialWatchModel(context.Background(), &fakeWatchDevice{}, nil, "Serial: /dev/ttyUSB0", time.Second)
	m.applyPoll(pollResultMsg{status: runStatus8000(), at: time.Now()})

	view := m.View()
	for _, want := range []string{"NODE 04", "Online", "RUN", "8000 bytes"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}
