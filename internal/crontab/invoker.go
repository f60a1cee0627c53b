package crontab

import (
	"os"
	"path/filepath"
	"strings"
)

// Invoker answers "how does a cron entry re-enter this application?".
// Invocation returns the command prefix for entryPoint.
type Invoker interface {
	Invocation(entryPoint string) string
}

// ScriptInvoker runs an entry script through an interpreter:
// "<Interpreter> <Root>/<entryPoint><Ext>".
type ScriptInvoker struct {
	Interpreter string
	Root        string
	Ext         string
}

func (s ScriptInvoker) Invocation(entryPoint string) string {
	script := entryPoint
	if s.Ext != "" && !strings.HasSuffix(script, s.Ext) {
		script += s.Ext
	}
	if s.Root != "" && !filepath.IsAbs(script) {
		script = filepath.Join(s.Root, script)
	}
	if in := strings.TrimSpace(s.Interpreter); in != "" {
		return in + " " + script
	}
	return script
}

// SelfInvoker re-invokes the running binary: "<executable> <entryPoint>".
// Executable overrides os.Executable (useful for wrappers and tests).
type SelfInvoker struct {
	Executable string
}

func (s SelfInvoker) Invocation(entryPoint string) string {
	exe := s.Executable
	if exe == "" {
		if p, err := os.Executable(); err == nil {
			exe = p
		} else {
			exe = filepath.Base(os.Args[0])
		}
	}
	if entryPoint == "" {
		return exe
	}
	return exe + " " + entryPoint
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(entryPoint string) string

func (f InvokerFunc) Invocation(entryPoint string) string { return f(entryPoint) }
