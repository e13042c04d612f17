package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/furry-store/devtools"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func sampleEvents() []devtools.Event {
	return []devtools.Event{
		{Seq: 0, Type: devtools.EventInit, Instance: "a", Store: "bears", State: json.RawMessage(`{"bears":0}`)},
		{Seq: 1, Type: devtools.EventSet, Instance: "a", Store: "bears", Action: "merge", State: json.RawMessage(`{"bears":1}`)},
		{Seq: 2, Type: devtools.EventSet, Instance: "b", Store: "fish", Action: "replace", Replace: true, State: json.RawMessage(`{"fish":3}`)},
		{Seq: 3, Type: devtools.EventSet, Instance: "a", Store: "bears", Action: "merge", State: json.RawMessage(`{"bears":2}`)},
	}
}

func TestFormatEvent_Plain(t *testing.T) {
	var buf bytes.Buffer
	ev := sampleEvents()[2]
	require.NoError(t, formatEvent(&buf, ev, watchOptions{}))
	assert.Equal(t, "#2 set fish (replace) replace\n{\n  \"fish\": 3\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, formatEvent(&buf, devtools.Event{Seq: 7, Type: devtools.EventInit, Store: "x"}, watchOptions{compact: true}))
	assert.Equal(t, "#7 init x\nnull\n", buf.String())
}

func TestFormatEvent_Highlighted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatEvent(&buf, sampleEvents()[1], watchOptions{color: true, style: "monokai"}))
	out := buf.String()
	assert.Contains(t, out, "\x1b[", "expected terminal escapes")
	assert.Contains(t, out, "bears")
}

func TestReadEvents(t *testing.T) {
	var src bytes.Buffer
	enc := json.NewEncoder(&src)
	for _, ev := range sampleEvents() {
		require.NoError(t, enc.Encode(ev))
	}
	src.WriteString("\n")

	events, err := readEvents(&src)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "fish", events[2].Store)

	_, err = readEvents(strings.NewReader("{\"seq\":1}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestBuildReport(t *testing.T) {
	md := buildReport(sampleEvents())
	assert.Contains(t, md, "4 events from 2 stores.")
	assert.Contains(t, md, "| bears | 3 | 0 | 3 |")
	assert.Contains(t, md, "| fish | 1 | 1 | 2 |")
	assert.Contains(t, md, "- `merge`: 2")
	assert.Contains(t, md, "\"bears\": 2")

	assert.Equal(t, "# Store session\n\n0 events from 0 stores.\n\n", buildReport(nil))
}

func TestBuildReport_DestroyedStore(t *testing.T) {
	events := append(sampleEvents(), devtools.Event{Seq: 4, Type: devtools.EventClose, Instance: "b", Store: "fish", State: json.RawMessage("null")})
	md := buildReport(events)
	assert.Contains(t, md, "| fish | 2 | 1 | 2 |")
	assert.Contains(t, md, "## fish\n\nDestroyed during the session.")
	assert.Contains(t, md, "\"fish\": 3", "final state survives the close event")
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHTML(&buf, buildReport(sampleEvents())))
	out := buf.String()
	assert.Contains(t, out, "<h1>Store session</h1>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>bears</td>")
	assert.Contains(t, out, `<code class="language-json">`)
}

func TestReportCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "events.jsonl")
	var src bytes.Buffer
	for _, ev := range sampleEvents() {
		require.NoError(t, json.NewEncoder(&src).Encode(ev))
	}
	require.NoError(t, os.WriteFile(in, src.Bytes(), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"report", "--markdown", in})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "# Store session"))
}

func TestWatch(t *testing.T) {
	hub := devtools.NewHub(devtools.Config{})
	defer hub.Close()
	count := 0
	inst := hub.Connect("counter", func() any { return map[string]int{"count": count} })
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + devtools.DefaultPath

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []devtools.Event
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, url, quietLogger(), func(ev devtools.Event) error {
			got = append(got, ev)
			if len(got) == 2 {
				return errStop
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	count = 1
	require.NoError(t, inst.Send("update", false))

	err := <-done
	require.ErrorIs(t, err, errStop)
	require.Len(t, got, 2)
	assert.Equal(t, devtools.EventInit, got[0].Type)
	assert.Equal(t, devtools.EventSet, got[1].Type)
	assert.JSONEq(t, `{"count":1}`, string(got[1].State))
}

func TestWatchCmd_RecordsEvents(t *testing.T) {
	hub := devtools.NewHub(devtools.Config{})
	defer hub.Close()
	hub.Connect("bears", func() any { return map[string]int{"bears": 4} })
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + devtools.DefaultPath
	record := filepath.Join(t.TempDir(), "session.jsonl")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"watch", "--url", url, "--count", "1", "--color=false", "--record", record})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "#0 init bears")
	data, err := os.ReadFile(record)
	require.NoError(t, err)
	events, err := readEvents(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "bears", events[0].Store)
}

func TestWatch_ConnectError(t *testing.T) {
	err := watch(context.Background(), "ws://127.0.0.1:1/devtools", quietLogger(), func(devtools.Event) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
}
