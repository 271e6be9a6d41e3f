package activation

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// defaultScanDepth is how many trailing messages triggers scan when the
// collection does not configure a depth.
const defaultScanDepth = 4

// matchTriggers reports whether the configured trigger keywords match the
// recent message window. Triggers are plain substrings or /pattern/flags
// regular expressions; the match mode decides whether any or all triggers
// must hit. A malformed regex evaluates false and is logged, never raised.
func matchTriggers(cfg *domain.ActivationConfig, messages []domain.Message) bool {
	if len(cfg.Triggers) == 0 {
		return false
	}

	depth := cfg.ScanDepth
	if depth <= 0 {
		depth = defaultScanDepth
	}
	if depth > len(messages) {
		depth = len(messages)
	}

	parts := make([]string, 0, depth)
	for _, m := range messages[len(messages)-depth:] {
		parts = append(parts, m.Text)
	}
	window := strings.Join(parts, "\n")

	haystack := window
	if !cfg.CaseSensitive {
		haystack = strings.ToLower(window)
	}

	for _, trigger := range cfg.Triggers {
		hit := matchOneTrigger(trigger, window, haystack, cfg.CaseSensitive)

		if hit && cfg.TriggerMode != domain.MatchAll {
			return true
		}
		if !hit && cfg.TriggerMode == domain.MatchAll {
			return false
		}
	}

	return cfg.TriggerMode == domain.MatchAll
}

// matchOneTrigger evaluates a single trigger against the scan window.
// window keeps original casing for regex forms; haystack is pre-lowered
// when matching is case-insensitive.
func matchOneTrigger(trigger, window, haystack string, caseSensitive bool) bool {
	if pattern, flags, ok := regexTrigger(trigger); ok {
		re, err := compileTrigger(pattern, flags)
		if err != nil {
			logger.Warn("Malformed trigger %q: %v (evaluates false)", trigger, err)
			return false
		}
		return re.MatchString(window)
	}

	needle := trigger
	if !caseSensitive {
		needle = strings.ToLower(trigger)
	}
	return needle != "" && strings.Contains(haystack, needle)
}

// regexTrigger recognises the /pattern/flags trigger form.
func regexTrigger(trigger string) (pattern, flags string, ok bool) {
	if len(trigger) < 2 || !strings.HasPrefix(trigger, "/") {
		return "", "", false
	}
	end := strings.LastIndex(trigger[1:], "/")
	if end < 0 {
		return "", "", false
	}
	end++ // offset for the leading slash
	return trigger[1:end], trigger[end+1:], true
}

// compileTrigger compiles a trigger regex, translating the supported
// flags (i, s, m) into Go's inline flag syntax.
func compileTrigger(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			inline.WriteRune(f)
		}
	}
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}
