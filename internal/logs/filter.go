package logs

import (
	"encoding/json"
	"strings"
)

// Filter selects log lines. Zero fields match everything.
type Filter struct {
	Component string
	Level     string
	Contains  string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Match reports whether line passes the filter. Level is a minimum.
func (f Filter) Match(line string) bool {
	if f.Contains != "" && !strings.Contains(strings.ToLower(line), strings.ToLower(f.Contains)) {
		return false
	}
	if f.Component == "" && f.Level == "" {
		return true
	}
	level, component := parseLine(line)
	if f.Component != "" && !strings.EqualFold(component, f.Component) {
		return false
	}
	if f.Level != "" {
		want, ok := levelRank[strings.ToLower(f.Level)]
		if !ok {
			return true
		}
		got, ok := levelRank[level]
		if !ok || got < want {
			return false
		}
	}
	return true
}

// parseLine extracts the level and component from a console line
// ("<ts> <LEVEL> <component>: <msg> ...") or a JSON line.
func parseLine(line string) (level, component string) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var entry struct {
			Level     string `json:"level"`
			Component string `json:"component"`
		}
		if json.Unmarshal([]byte(trimmed), &entry) == nil {
			return strings.ToLower(entry.Level), entry.Component
		}
		return "", ""
	}

	fields := strings.SplitN(trimmed, " ", 4)
	if len(fields) < 3 {
		return "", ""
	}
	level = strings.ToLower(fields[1])
	if name, ok := strings.CutSuffix(fields[2], ":"); ok {
		component = name
	}
	return level, component
}
