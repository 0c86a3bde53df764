package commands

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/docqa-go/internal/journal"
	"github.com/54b3r/docqa-go/internal/workflow"
)

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{"ask": false, "ingest": false, "serve": false, "eval": false, "journal": false, "version": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "docqa ") {
		t.Errorf("output = %q", out)
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	if _, err := execute(t, "ask"); err == nil {
		t.Error("expected error without a question")
	}
	if _, err := execute(t, "ask", "   "); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("blank question: err = %v", err)
	}
}

func TestIngestCmd_RequiresSource(t *testing.T) {
	_, err := execute(t, "ingest")
	if err == nil || !strings.Contains(err.Error(), "--file or --url") {
		t.Errorf("err = %v", err)
	}
}

func TestJournalCmd_Disabled(t *testing.T) {
	t.Setenv("DOCQA_JOURNAL_DB", "disabled")
	_, err := execute(t, "journal", "summary")
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Errorf("err = %v", err)
	}
}

func TestJournalCmd_ReadsEntries(t *testing.T) {
	path := t.TempDir() + "/journal.db"
	store, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	res := workflow.Result{
		State:   workflow.State{Question: "What is OOP?", Context: []string{"p"}, RelevanceScore: 0.9, Answer: "a"},
		Outcome: workflow.Answered,
	}
	if err := store.Record(t.Context(), journal.EntryFor(journal.ChannelCLI, "What is OOP?", res, nil, 120*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	t.Setenv("DOCQA_JOURNAL_DB", path)
	out, err := execute(t, "journal", "recent")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if !strings.Contains(out, "What is OOP?") || !strings.Contains(out, "answered") {
		t.Errorf("recent output = %q", out)
	}

	out, err = execute(t, "journal", "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, "answered: 1") || !strings.Contains(out, "0.90") {
		t.Errorf("summary output = %q", out)
	}
}

func TestPrintAnswer(t *testing.T) {
	ended := workflow.Result{
		State:   workflow.State{Question: "q", Context: []string{}, RelevanceScore: 0.2, Answer: "leaked"},
		Outcome: workflow.Ended,
	}

	var buf bytes.Buffer
	if err := printAnswer(&buf, ended, false); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), workflow.NoRelevantAnswer) || strings.Contains(buf.String(), "leaked") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	nan := ended
	nan.RelevanceScore = math.NaN()
	if err := printAnswer(&buf, nan, true); err != nil {
		t.Fatal(err)
	}
	var out askOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RelevanceScore != nil || out.Outcome != "ended" || out.Answer != workflow.NoRelevantAnswer {
		t.Errorf("json output = %+v", out)
	}
}

func TestTruncateQuestion(t *testing.T) {
	if got := truncateQuestion("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateQuestion("ünïcödé question", 5); got != "ünïc…" {
		t.Errorf("got %q", got)
	}
}
