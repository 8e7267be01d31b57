package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "sitesage version") {
		t.Errorf("output missing version line:\n%s", got)
	}
	if !strings.Contains(got, "commit:") || !strings.Contains(got, "built:") {
		t.Errorf("output missing build provenance:\n%s", got)
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("getVersion() returned empty string, want a fallback")
	}
}
