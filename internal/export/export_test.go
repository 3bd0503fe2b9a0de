package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medassist-rag/medassist/internal/session"
)

var fixedTime = time.Date(2021, 5, 14, 15, 3, 0, 0, time.UTC)

func sampleTranscript() Transcript {
	return Transcript{
		ExtractedText: "Hemoglobin 14 g/dl 13-17\n",
		Messages: []session.Message{
			{Sender: session.SenderAssistant, Text: session.GreetingText},
			{Sender: session.SenderUser, Text: "Is my hemoglobin normal?"},
			{Sender: session.SenderAssistant, Text: "Yes, **14 g/dl** is within range."},
		},
		CreatedAt: fixedTime,
	}
}

func TestBuildTranscriptMarkdownOrdersMessages(t *testing.T) {
	out := BuildTranscriptMarkdown(sampleTranscript())

	if !strings.Contains(out, "```text\nHemoglobin 14 g/dl 13-17\n```") {
		t.Fatalf("expected extracted text block, got:\n%s", out)
	}
	you := strings.Index(out, "### You")
	answer := strings.Index(out, "**14 g/dl**")
	if you < 0 || answer < 0 || you > answer {
		t.Fatalf("expected question before answer, got:\n%s", out)
	}
}

func TestBuildTranscriptMarkdownWithoutReport(t *testing.T) {
	tr := sampleTranscript()
	tr.ExtractedText = "  "
	out := BuildTranscriptMarkdown(tr)
	if !strings.Contains(out, "_No report uploaded._") {
		t.Fatalf("expected placeholder, got:\n%s", out)
	}
}

func TestExportWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := New(dir)

	mdPath, err := e.Export(sampleTranscript(), FormatMarkdown)
	if err != nil {
		t.Fatalf("export md: %v", err)
	}
	if filepath.Base(mdPath) != "medassist-20210514-150300.md" {
		t.Fatalf("unexpected file name %q", mdPath)
	}

	htmlPath, err := e.Export(sampleTranscript(), FormatHTML)
	if err != nil {
		t.Fatalf("export html: %v", err)
	}
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "<strong>14 g/dl</strong>") {
		t.Fatalf("expected rendered markdown in html, got:\n%s", html)
	}
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Fatalf("expected standalone html page")
	}
}

func TestExportSameSecondKeepsEveryFile(t *testing.T) {
	e := New(t.TempDir())

	first := sampleTranscript()
	second := sampleTranscript()
	second.Messages = append(second.Messages, session.Message{Sender: session.SenderUser, Text: "And my MCV?"})

	p1, err := e.Export(first, FormatMarkdown)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	p2, err := e.Export(second, FormatMarkdown)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	p3, err := e.Export(second, FormatMarkdown)
	if err != nil {
		t.Fatalf("third export: %v", err)
	}

	if filepath.Base(p1) != "medassist-20210514-150300.md" ||
		filepath.Base(p2) != "medassist-20210514-150300-2.md" ||
		filepath.Base(p3) != "medassist-20210514-150300-3.md" {
		t.Fatalf("unexpected names %q %q %q", p1, p2, p3)
	}

	data, err := os.ReadFile(p1)
	if err != nil {
		t.Fatalf("read first export: %v", err)
	}
	if strings.Contains(string(data), "And my MCV?") {
		t.Fatalf("first export was overwritten:\n%s", data)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"HTML", FormatHTML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFromSession(t *testing.T) {
	s := session.New()
	tr := FromSession(s, fixedTime)
	if len(tr.Messages) != 1 || tr.Messages[0].Text != session.GreetingText {
		t.Fatalf("unexpected messages: %#v", tr.Messages)
	}
	if tr.ExtractedText != "" {
		t.Fatalf("expected empty extracted text")
	}
}
