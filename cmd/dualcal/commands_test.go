package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestConvertCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out := runCommand(t, newConvertCommand(&path), "--from", "jalali", "1402/12/25")
	for _, want := range []string{"2024/03/15", "Fri", "March 2024", "۱۴۰۲/۱۲/۲۵", "جمعه"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected convert output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestConvertCommandRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	for _, args := range [][]string{
		{"2024-02-30"},
		{"--from", "mayan", "2024-03-15"},
		{},
	} {
		cmd := newConvertCommand(&path)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func TestMonthCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out := runCommand(t, newMonthCommand(&path), "--primary", "jalali", "--date", "1402/12/25")
	if !strings.Contains(out, "اسفند ۱۴۰۲") {
		t.Fatalf("expected Esfand 1402 header, got:\n%s", out)
	}
	if !strings.Contains(out, "March 2024") {
		t.Fatalf("expected Gregorian subtitle for the anchor, got:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out := runCommand(t, newVersionCommand())
	if strings.TrimSpace(out) != "dualcal "+version {
		t.Fatalf("unexpected version output %q", out)
	}
}
