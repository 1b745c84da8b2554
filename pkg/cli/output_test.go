package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
)

type summary struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func (s summary) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %d\n", s.Name, s.Count)
	return err
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"plain value", "test message", "test message\n"},
		{"texter", summary{Name: "matched", Count: 3}, "matched: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&TextFormatter{}).FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	for _, indent := range []bool{false, true} {
		buf := &bytes.Buffer{}
		if err := (&JSONFormatter{Indent: indent}).FormatTo(buf, summary{Name: "a", Count: 1}); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		var got summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Name != "a" || got.Count != 1 {
			t.Errorf("decoded = %+v", got)
		}
		if indent != strings.Contains(buf.String(), "\n  ") {
			t.Errorf("indent=%v output %q", indent, buf.String())
		}
	}
}

func TestYAMLFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&YAMLFormatter{}).FormatTo(buf, summary{Name: "a", Count: 2}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "name: a\ncount: 2\n" {
		t.Errorf("FormatTo() = %q", buf.String())
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{"", "*cli.TextFormatter", false},
		{FormatText, "*cli.TextFormatter", false},
		{FormatJSON, "*cli.JSONFormatter", false},
		{FormatYAML, "*cli.YAMLFormatter", false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && fmt.Sprintf("%T", f) != tt.want {
				t.Errorf("NewFormatter() = %T, want %s", f, tt.want)
			}
		})
	}
}
