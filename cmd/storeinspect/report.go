package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/odvcencio/furry-store/devtools"
)

func newReportCmd() *cobra.Command {
	var (
		output   string
		markdown bool
	)
	cmd := &cobra.Command{
		Use:   "report <events.jsonl>",
		Short: "Summarize a session recorded with watch --record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getLogger(cmd)
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open events: %w", err)
			}
			defer f.Close()

			events, err := readEvents(f)
			if err != nil {
				return err
			}
			logger.WithField("events", len(events)).Debug("loaded session")

			md := buildReport(events)
			out := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				defer file.Close()
				out = file
			}
			if markdown {
				_, err = io.WriteString(out, md)
				return err
			}
			return renderHTML(out, md)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to this file")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Emit markdown instead of HTML")
	return cmd
}

// readEvents parses one JSON event per line. Blank lines are skipped.
func readEvents(r io.Reader) ([]devtools.Event, error) {
	var events []devtools.Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var ev devtools.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

type storeSummary struct {
	name     string
	events   int
	replaces int
	actions  map[string]int
	last     devtools.Event
	closed   bool
}

// buildReport renders a markdown summary: one table row per store, the
// transition counts per action and the final state of each store.
func buildReport(events []devtools.Event) string {
	summaries := map[string]*storeSummary{}
	var order []string
	for _, ev := range events {
		key := ev.Instance
		if key == "" {
			key = ev.Store
		}
		s, ok := summaries[key]
		if !ok {
			s = &storeSummary{name: ev.Store, actions: map[string]int{}}
			summaries[key] = s
			order = append(order, key)
		}
		s.events++
		if ev.Type == devtools.EventClose {
			s.closed = true
			continue
		}
		if ev.Replace {
			s.replaces++
		}
		if ev.Type == devtools.EventSet {
			action := ev.Action
			if action == "" {
				action = "set"
			}
			s.actions[action]++
		}
		if ev.Seq >= s.last.Seq {
			s.last = ev
		}
	}

	var b strings.Builder
	b.WriteString("# Store session\n\n")
	fmt.Fprintf(&b, "%d events from %d stores.\n\n", len(events), len(order))
	if len(order) == 0 {
		return b.String()
	}

	b.WriteString("| Store | Events | Replaces | Last seq |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, key := range order {
		s := summaries[key]
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", s.name, s.events, s.replaces, s.last.Seq)
	}

	for _, key := range order {
		s := summaries[key]
		fmt.Fprintf(&b, "\n## %s\n\n", s.name)
		if s.closed {
			b.WriteString("Destroyed during the session.\n\n")
		}
		if len(s.actions) > 0 {
			actions := make([]string, 0, len(s.actions))
			for a := range s.actions {
				actions = append(actions, a)
			}
			sort.Strings(actions)
			for _, a := range actions {
				fmt.Fprintf(&b, "- `%s`: %d\n", a, s.actions[a])
			}
			b.WriteString("\n")
		}
		var state bytes.Buffer
		if err := json.Indent(&state, s.last.State, "", "  "); err != nil {
			state.Reset()
			state.Write(s.last.State)
		}
		b.WriteString("Final state:\n\n```json\n")
		b.Write(state.Bytes())
		b.WriteString("\n```\n")
	}
	return b.String()
}

// renderHTML converts the markdown report to an HTML document.
func renderHTML(w io.Writer, md string) error {
	var body bytes.Buffer
	converter := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := converter.Convert([]byte(md), &body); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Store session</title></head><body>\n%s</body></html>\n", body.String())
	return err
}
