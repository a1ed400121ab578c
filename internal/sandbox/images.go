package sandbox

import "github.com/codeexec/gateway/pkg/types"

// images maps each supported language to the container image whose
// entrypoint understands the bootstrap contract (reads a JSON spec on
// stdin, executes the staged code, writes usage.json).
var images = map[types.Language]string{
	types.LanguagePython: "codeexec/runner-python:latest",
	types.LanguageNode:   "codeexec/runner-node:latest",
	types.LanguageRuby:   "codeexec/runner-ruby:latest",
	types.LanguagePHP:    "codeexec/runner-php:latest",
	types.LanguageGo:     "codeexec/runner-go:latest",
}

// entryFiles gives the default entry file name per language when a
// request doesn't override RunRequest.EntryFile.
var entryFiles = map[types.Language]string{
	types.LanguagePython: "main.py",
	types.LanguageNode:   "main.js",
	types.LanguageRuby:   "main.rb",
	types.LanguagePHP:    "main.php",
	types.LanguageGo:     "main.go",
}

func imageFor(lang types.Language) (string, bool) {
	img, ok := images[lang]
	return img, ok
}

// EntryFileFor returns the conventional entry file name for lang, used
// when a run request doesn't override it.
func EntryFileFor(lang types.Language) string {
	return entryFiles[lang]
}
