package textgen

import (
	"encoding/json"
	"errors"
	"strings"
)

// DecodeModelJSON decodes model output into out. Models wrap JSON in
// markdown fences or surround it with prose often enough that plain
// json.Unmarshal is a losing bet, so this strips fences first and, failing
// that, extracts the outermost JSON document from the text.
func DecodeModelJSON(content string, out any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty model output")
	}

	candidates := []string{trimmed}
	if fenced := stripFences(trimmed); fenced != trimmed {
		candidates = append(candidates, fenced)
	}
	if extracted := extractDocument(trimmed); extracted != "" {
		candidates = append(candidates, extracted)
	}

	var lastErr error
	for _, candidate := range candidates {
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractDocument returns the first balanced {...} or [...] span in s.
func extractDocument(s string) string {
	start := -1
	var opener, closer byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			opener = s[i]
			if opener == '{' {
				closer = '}'
			} else {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
