// Package cli implements the lark binary surface: file runner, stdin
// evaluation, and the interactive REPL.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/larkvm/lark/internal/config"
	"github.com/larkvm/lark/internal/vm"
	"github.com/larkvm/lark/pkg/embed"
)

// Run is the process entry point; it returns the exit code.
func Run(args []string) int {
	project, err := config.LoadProject()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if len(args) > 0 {
		return runFile(args[0], project)
	}
	if project.Entry != "" {
		return runFile(project.Entry, project)
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return runRepl(project)
	}
	return runReader(os.Stdin, project)
}

func runFile(path string, project *config.Project) int {
	if !config.IsSourceFile(path) {
		fmt.Fprintf(os.Stderr, "warning: %s has no Lark source extension\n", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return evalAndPrint(string(data), project)
}

func runReader(r io.Reader, project *config.Project) int {
	data, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return evalAndPrint(string(data), project)
}

func evalAndPrint(source string, project *config.Project) int {
	if project.Trace {
		if prog, err := embed.Compile(source); err == nil {
			fmt.Fprint(os.Stderr, vm.Disassemble(prog, "trace"))
		}
	}
	result, err := embed.Run(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(result)
	return 0
}

func historyPath(project *config.Project) string {
	if project.History != "" {
		return project.History
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return config.DefaultHistoryFile
	}
	return filepath.Join(home, config.DefaultHistoryFile)
}

// runRepl is the interactive loop: one line per evaluation, `...` toggling
// multi-line mode, and successful val bindings carried forward into the
// session so later lines can use them.
func runRepl(project *config.Project) int {
	fmt.Println("lark repl — .quit to exit, ... to toggle multi-line")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath(project)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	var session []string

	for {
		input, ok := readInput(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		switch trimmed {
		case config.ReplQuit, config.ReplExit:
			return 0
		}

		source := strings.Join(append(append([]string{}, session...), input), "\n")
		result, err := embed.Run(source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(result)
		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		if isBindingOnly(input) {
			session = append(session, input)
		}
	}
}

// readInput reads one evaluation unit: a single line, or everything
// between two `...` markers in multi-line mode.
func readInput(ln *liner.State) (string, bool) {
	line, err := ln.Prompt(config.PromptMain)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(line) != config.ReplMultiline {
		return line, true
	}

	var b strings.Builder
	for {
		line, err := ln.Prompt(config.PromptCont)
		if err != nil {
			return "", false
		}
		if strings.TrimSpace(line) == config.ReplMultiline {
			return b.String(), true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
}

// isBindingOnly reports whether every line is a val binding, in which case
// the input is kept as session context for later lines.
func isBindingOnly(input string) bool {
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "val ") {
			return false
		}
	}
	return true
}
