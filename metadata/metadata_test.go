package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"

	"github.com/oscore/ossim/opcode"
)

func writeMetaFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.mdf")
	content := "Start Program Meta-Data Code:\n" + body + "\nEnd Program Meta-Data Code.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func collect(head *opcode.OpCode) []opcode.OpCode {
	var out []opcode.OpCode
	for op := head; op != nil; op = op.Next {
		cp := *op
		cp.Next = nil
		out = append(out, cp)
	}
	return out
}

func TestLoadSingleProcess(t *testing.T) {
	path := writeMetaFile(t, "sys()start,0;app()start,0;cpu()process,5;dev(in)keyboard,3;mem()allocate,0,8000;app()end,0;sys()end,0;")

	head, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err = %v", err)
	}

	want := []opcode.OpCode{
		{Command: opcode.Sys, StrArg1: "start", IntArg2: 0},
		{Command: opcode.App, StrArg1: "start", IntArg2: 0},
		{Command: opcode.CPU, StrArg1: "process", IntArg2: 5},
		{Command: opcode.Dev, StrArg1: "keyboard", InOutArg: opcode.DirIn, IntArg2: 3},
		{Command: opcode.Mem, StrArg1: "allocate", IntArg2: 0, IntArg3: 8000},
		{Command: opcode.App, StrArg1: "end", IntArg2: 0},
		{Command: opcode.Sys, StrArg1: "end", IntArg2: 0},
	}

	got := collect(head)
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("parsed opcodes differ: %v", diff)
	}
}

func TestLoadRejectsBadLeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.mdf")
	if err := os.WriteFile(path, []byte("nope\nEnd Program Meta-Data Code.\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want corrupt leader error")
	}
}

func TestLoadRejectsUnbalancedApp(t *testing.T) {
	path := writeMetaFile(t, "sys(start)0;app(start)0;cpu(process)5;sys(end)0;")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want unbalanced app error")
	}
}

func TestLoadRejectsBadFirstOpcode(t *testing.T) {
	path := writeMetaFile(t, "app()start,0;app()end,0;sys()end,0;")
	if _, err := Load(path); err == nil {
		t.Fatal("Load() err = nil, want bad first opcode error")
	}
}
