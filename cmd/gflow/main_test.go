package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cncflow/gflow/pkg/pipeline"
	"github.com/cncflow/gflow/pkg/types"
)

func TestOpenEnvEmptySpecReturnsNilEnv(t *testing.T) {
	env, closeEnv, err := openEnv("")
	if err != nil {
		t.Fatalf("openEnv(\"\") error: %v", err)
	}
	if env != nil {
		t.Fatalf("openEnv(\"\") env = %v, want nil", env)
	}
	if closeEnv != nil {
		t.Fatalf("openEnv(\"\") closeEnv = non-nil, want nil")
	}
}

func TestOpenEnvRejectsUnknownKind(t *testing.T) {
	if _, _, err := openEnv("toml:/tmp/whatever.toml"); err == nil {
		t.Fatalf("openEnv with an unknown kind should fail")
	}
}

func TestOpenEnvRejectsMissingColon(t *testing.T) {
	if _, _, err := openEnv("nocolonhere"); err == nil {
		t.Fatalf("openEnv without a kind:path separator should fail")
	}
}

func TestOpenEnvYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	if err := os.WriteFile(path, []byte("extruder:\n  max_temp: 250\n"), 0600); err != nil {
		t.Fatal(err)
	}

	env, closeEnv, err := openEnv("yaml:" + path)
	if err != nil {
		t.Fatalf("openEnv(yaml:...) error: %v", err)
	}
	if env == nil {
		t.Fatalf("openEnv(yaml:...) env = nil")
	}
	if closeEnv != nil {
		closeEnv()
	}
}

func TestOpenEnvBolt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.db")

	env, closeEnv, err := openEnv("bolt:" + path)
	if err != nil {
		t.Fatalf("openEnv(bolt:...) error: %v", err)
	}
	if env == nil {
		t.Fatalf("openEnv(bolt:...) env = nil")
	}
	if closeEnv == nil {
		t.Fatalf("openEnv(bolt:...) closeEnv = nil, want a Close func")
	}
	closeEnv()
}

func TestReadInputPrefersArgFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.gcode")
	if err := os.WriteFile(path, []byte("G1 X1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	data, err := readInput([]string{path})
	if err != nil {
		t.Fatalf("readInput error: %v", err)
	}
	if string(data) != "G1 X1\n" {
		t.Fatalf("readInput = %q, want file contents", data)
	}
}

func TestPrintResultFormatsCommandAndError(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, pipeline.Result{Kind: pipeline.ResultCommand, Command: "G1", Fields: []string{"X1", "Y2"}}, false)
	printResult(&buf, pipeline.Result{Kind: pipeline.ResultError, Err: types.NewError(types.KindEvaluation, types.ErrDivideByZero, "boom")}, false)

	out := buf.String()
	if !strings.Contains(out, "G1\nX1\nY2\n") {
		t.Fatalf("printResult output = %q, want the command and each field on its own line", out)
	}
	if !strings.Contains(out, "* boom") {
		t.Fatalf("printResult output = %q, want an error line", out)
	}
}

func TestPrintResultColorsErrorsWhenRequested(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, pipeline.Result{Kind: pipeline.ResultError, Err: types.NewError(types.KindEvaluation, types.ErrDivideByZero, "boom")}, true)

	if !strings.Contains(buf.String(), "\033[31m") {
		t.Fatalf("printResult with colorErrors=true should emit an ANSI color code, got %q", buf.String())
	}
}

func TestRunQueryRequiresEnv(t *testing.T) {
	if err := runQuery(&bytes.Buffer{}, nil, ".") ; err == nil {
		t.Fatalf("runQuery with a nil env should fail")
	}
}
