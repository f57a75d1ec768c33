// Package report renders a human readable summary of a build run.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/mobilebuild/internal/events"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/history"
)

// Summary is the input of a report: the run record and the events it produced.
type Summary struct {
	Run    history.Run
	Events []events.Event
}

type stageRow struct {
	name    string
	result  string
	started time.Time
	ended   time.Time
	message string
}

// stages folds stage events into one row per stage, in first-seen order.
func (s Summary) stages() []stageRow {
	var rows []stageRow
	index := map[string]int{}
	for _, ev := range s.Events {
		if ev.Stage == "" {
			continue
		}
		i, ok := index[ev.Stage]
		if !ok {
			i = len(rows)
			index[ev.Stage] = i
			rows = append(rows, stageRow{name: ev.Stage, result: "running"})
		}
		row := &rows[i]
		switch ev.Type {
		case events.StageStarted:
			row.started = ev.Timestamp
		case events.StageSucceeded:
			row.result, row.ended = "succeeded", ev.Timestamp
		case events.StageFailed:
			row.result, row.ended, row.message = "failed", ev.Timestamp, ev.Message
		case events.StageIgnored:
			row.result, row.ended = "ignored", ev.Timestamp
		}
	}
	return rows
}

func (s Summary) polls() int {
	n := 0
	for _, ev := range s.Events {
		if ev.Type == events.BuildPolled {
			n++
		}
	}
	return n
}

// Markdown renders the summary as Markdown.
func Markdown(s Summary) string {
	var b strings.Builder
	r := s.Run

	fmt.Fprintf(&b, "# Build run %s\n\n", r.RunID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "| %s | %s |\n", k, escapeCell(v))
		}
	}
	field("Project", r.Project)
	field("Owner", r.Owner)
	field("Branch", r.Branch)
	if r.BuildID != 0 {
		field("Build", fmt.Sprintf("%d", r.BuildID))
	}
	field("Outcome", r.Outcome)
	if !r.StartedAt.IsZero() {
		field("Started", r.StartedAt.UTC().Format(time.RFC3339))
		field("Duration", r.Duration().Round(time.Second).String())
	}
	if n := s.polls(); n > 0 {
		field("Status checks", fmt.Sprintf("%d", n))
	}
	if r.StatusURL != "" {
		fmt.Fprintf(&b, "\n[Open the build in the portal](%s)\n", r.StatusURL)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\n> **Error:** %s\n", strings.ReplaceAll(r.Error, "\n", " "))
	}

	if rows := s.stages(); len(rows) > 0 {
		b.WriteString("\n## Steps\n\n| Step | Result | Duration | Detail |\n|---|---|---|---|\n")
		for _, row := range rows {
			dur := ""
			if !row.started.IsZero() && !row.ended.IsZero() {
				dur = row.ended.Sub(row.started).Round(time.Millisecond).String()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", row.name, row.result, dur, escapeCell(row.message))
		}
	}
	return b.String()
}

// HTML renders the summary as a standalone HTML document.
func HTML(s Summary) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(s)), &body); err != nil {
		return nil, errors.InternalError("failed to render report").WithCause(err).Build()
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>mobilebuild run ")
	out.WriteString(s.Run.RunID)
	out.WriteString("</title></head><body>\n")
	_, _ = io.Copy(&out, &body)
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}

// Write renders the summary to path: HTML for .html/.htm files, Markdown otherwise.
func Write(path string, s Summary) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		html, err := HTML(s)
		if err != nil {
			return err
		}
		data = html
	default:
		data = []byte(Markdown(s))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.FileSystemError("failed to write report").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

func escapeCell(v string) string {
	return strings.ReplaceAll(strings.ReplaceAll(v, "|", "\\|"), "\n", " ")
}
