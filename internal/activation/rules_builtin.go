package activation

import (
	"strings"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Built-in rule kinds.
const (
	RulePattern      = "pattern"
	RuleSpeaker      = "speaker"
	RuleMessageCount = "messageCount"
	RuleEmotion      = "emotion"
	RuleTimeOfDay    = "timeOfDay"
	RuleRandomChance = "randomChance"
	RuleChatType     = "chatType"
)

// RegisterDefaults registers all built-in condition evaluators.
// Call this during initialisation to enable the standard rule kinds.
func RegisterDefaults(r *Registry) {
	r.Register(RulePattern, evalPattern)
	r.Register(RuleSpeaker, evalSpeaker)
	r.Register(RuleMessageCount, evalMessageCount)
	r.Register(RuleEmotion, evalEmotion)
	r.Register(RuleTimeOfDay, evalTimeOfDay)
	r.Register(RuleRandomChance, evalRandomChance)
	r.Register(RuleChatType, evalChatType)
}

// DefaultRegistry returns a registry with all built-in kinds registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// evalPattern matches a substring or /regex/flags form against the last
// message, or the whole window when scope is "any".
func evalPattern(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	pattern := getString(rule.Settings, "pattern")
	if pattern == "" {
		return false
	}

	var texts []string
	if getString(rule.Settings, "scope") == "any" {
		for _, m := range sc.Messages {
			texts = append(texts, m.Text)
		}
	} else if last := sc.LastMessage(); last != nil {
		texts = append(texts, last.Text)
	}

	if p, flags, ok := regexTrigger(pattern); ok {
		re, err := compileTrigger(p, flags)
		if err != nil {
			logger.Warn("Malformed pattern rule %q: %v (evaluates false)", pattern, err)
			return false
		}
		for _, text := range texts {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	}

	needle := strings.ToLower(pattern)
	for _, text := range texts {
		if strings.Contains(strings.ToLower(text), needle) {
			return true
		}
	}
	return false
}

// evalSpeaker matches the last message's speaker name, case-insensitive.
func evalSpeaker(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	name := getString(rule.Settings, "name")
	last := sc.LastMessage()
	if name == "" || last == nil {
		return false
	}
	return strings.EqualFold(last.Speaker, name)
}

// evalMessageCount checks the chat length against optional min/max bounds.
func evalMessageCount(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	count := sc.CurrentIndex + 1

	if min, ok := getInt(rule.Settings, "min"); ok && count < min {
		return false
	}
	if max, ok := getInt(rule.Settings, "max"); ok && count > max {
		return false
	}
	return true
}

// emotionLexicon is a minimal marker-word table for the emotion rule.
// Deliberately small: hosts wanting richer detection supply a pattern rule.
var emotionLexicon = map[string][]string{
	"joy":     {"happy", "glad", "laugh", "smile", "joy", "delight"},
	"sadness": {"sad", "cry", "tear", "mourn", "grief", "sorrow"},
	"anger":   {"angry", "furious", "rage", "shout", "hate"},
	"fear":    {"afraid", "scared", "terrified", "fear", "dread"},
}

// evalEmotion looks for marker words of the configured emotion in the last
// message.
func evalEmotion(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	emotion := strings.ToLower(getString(rule.Settings, "emotion"))
	markers, ok := emotionLexicon[emotion]
	last := sc.LastMessage()
	if !ok || last == nil {
		return false
	}

	text := strings.ToLower(last.Text)
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// timeOfDayLayout parses rule bounds as HH:MM.
const timeOfDayLayout = "15:04"

// evalTimeOfDay checks whether the context clock falls inside [from, to].
// Ranges may wrap midnight.
func evalTimeOfDay(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	from, err1 := time.Parse(timeOfDayLayout, getString(rule.Settings, "from"))
	to, err2 := time.Parse(timeOfDayLayout, getString(rule.Settings, "to"))
	if err1 != nil || err2 != nil {
		logger.Warn("Malformed timeOfDay rule (evaluates false)")
		return false
	}

	now := sc.Clock()
	minutes := now.Hour()*60 + now.Minute()
	lo := from.Hour()*60 + from.Minute()
	hi := to.Hour()*60 + to.Minute()

	if lo <= hi {
		return minutes >= lo && minutes <= hi
	}
	// Wrapping range, e.g. 22:00-06:00.
	return minutes >= lo || minutes <= hi
}

// evalRandomChance passes with the configured probability in [0,1].
func evalRandomChance(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	chance, ok := getFloat(rule.Settings, "chance")
	if !ok || chance <= 0 {
		return false
	}
	if chance >= 1 {
		return true
	}
	return sc.Chance() < chance
}

// evalChatType matches the group-chat flag.
func evalChatType(rule domain.ConditionRule, sc *domain.SearchContext) bool {
	group, ok := rule.Settings["group"].(bool)
	if !ok {
		return false
	}
	return sc.IsGroupChat == group
}

// getString safely extracts a string setting.
func getString(settings map[string]any, key string) string {
	s, _ := settings[key].(string)
	return s
}

// getInt safely extracts an int setting. Handles int, int64 and float64
// values that may come from TOML/JSON parsing.
func getInt(settings map[string]any, key string) (int, bool) {
	switch v := settings[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// getFloat safely extracts a float setting.
func getFloat(settings map[string]any, key string) (float64, bool) {
	switch v := settings[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
