// Package config holds build-wide constants and the optional project file.
package config

import "strings"

const SourceFileExt = ".lark"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".lark", ".lk"}

// IsSourceFile checks if a path has a recognized source extension.
func IsSourceFile(path string) bool {
	for _, ext := range SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// REPL prompts and commands.
const (
	PromptMain = "lark> "
	PromptCont = "  ... "

	ReplQuit      = ".quit"
	ReplExit      = ".exit"
	ReplMultiline = "..."
)

// DefaultHistoryFile is the liner history file, relative to the home
// directory.
const DefaultHistoryFile = ".lark_history"
