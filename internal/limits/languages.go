package limits

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/codeexec/gateway/pkg/types"
)

// SupportedLanguages is the closed set of execution targets the gateway
// accepts. Any request naming a language outside this set is rejected at
// admission; extending it is a configuration change, not a code change.
var SupportedLanguages = mapset.NewSet(
	types.LanguagePython,
	types.LanguageNode,
	types.LanguageRuby,
	types.LanguagePHP,
	types.LanguageGo,
)

// IsSupportedLanguage reports whether lang is in the closed set.
func IsSupportedLanguage(lang types.Language) bool {
	return SupportedLanguages.Contains(lang)
}
