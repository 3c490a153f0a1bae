// Package extract recovers structured values from semi-structured LLM and
// search output. Generated text is untrusted: it may wrap JSON in prose or
// markdown fences, use single quotes or bare keys, truncate mid-array, or
// contain no JSON at all. Every entry point degrades through a fixed cascade
// and never returns an error; the boolean result reports whether real data
// was recovered so callers can apply their own domain fallback.
package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Array extracts an array of records from raw. The cascade is: direct parse,
// sanitize-then-parse, fenced code block, first balanced [...] or {...}
// region, then a line-oriented label scan. On total failure it returns an
// empty (non-nil) slice and false.
func Array(raw string) ([]map[string]interface{}, bool) {
	if out, ok := parseArray(raw); ok {
		return out, true
	}
	if out, ok := parseArray(Sanitize(raw)); ok {
		return out, true
	}
	if inner, err := Fenced(raw, "json"); err == nil {
		if out, ok := parseArray(inner); ok {
			return out, true
		}
		if out, ok := parseArray(Sanitize(inner)); ok {
			return out, true
		}
	}
	if region, err := BalancedRegion(raw); err == nil {
		if out, ok := parseArray(region); ok {
			return out, true
		}
		if out, ok := parseArray(Sanitize(region)); ok {
			return out, true
		}
	}
	if recs := labeledRecords(raw); len(recs) > 0 {
		return recs, true
	}
	return []map[string]interface{}{}, false
}

// Object extracts a single JSON object from raw using the same cascade as
// Array (minus the label scan, which only assembles array records). On
// failure it returns a copy of skeleton, or an empty map when skeleton is
// nil, and false.
func Object(raw string, skeleton map[string]interface{}) (map[string]interface{}, bool) {
	if out, ok := parseObject(raw); ok {
		return out, true
	}
	if out, ok := parseObject(Sanitize(raw)); ok {
		return out, true
	}
	if inner, err := Fenced(raw, "json"); err == nil {
		if out, ok := parseObject(inner); ok {
			return out, true
		}
		if out, ok := parseObject(Sanitize(inner)); ok {
			return out, true
		}
	}
	if region, err := BalancedRegion(raw); err == nil {
		if out, ok := parseObject(region); ok {
			return out, true
		}
		if out, ok := parseObject(Sanitize(region)); ok {
			return out, true
		}
	}
	out := make(map[string]interface{}, len(skeleton))
	for k, v := range skeleton {
		out[k] = v
	}
	return out, false
}

func parseArray(s string) ([]map[string]interface{}, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '[' {
		return nil, false
	}
	var out []map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	if out == nil {
		out = []map[string]interface{}{}
	}
	return out, true
}

func parseObject(s string) (map[string]interface{}, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuoteRe   = regexp.MustCompile(`([{\[:,]\s*)'((?:[^'\\]|\\.)*)'`)
)

// truncationMarkers are suffixes some providers emit when output was cut off.
var truncationMarkers = []string{"[truncated]", "[TRUNCATED]", "…", "..."}

// Sanitize applies textual repairs that turn almost-JSON into JSON: BOM and
// control characters are stripped, single-quoted keys and values become
// double-quoted, trailing commas are removed, bare identifier keys are
// quoted, and a trailing truncation marker causes unmatched braces and
// brackets to be auto-balanced.
func Sanitize(s string) string {
	s = trimBOM(strings.TrimSpace(s))
	s = stripControl(s)

	truncated := false
	for _, marker := range truncationMarkers {
		if strings.HasSuffix(s, marker) {
			s = strings.TrimSpace(strings.TrimSuffix(s, marker))
			truncated = true
			break
		}
	}

	s = singleQuoteRe.ReplaceAllString(s, `$1"$2"`)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaRe.ReplaceAllString(s, `$1`)

	if truncated {
		s = balance(s)
	}
	return s
}

// balance appends the closers missing for any unmatched '{' or '['. Opens
// and closes are counted outside string literals across the whole input. A
// dangling quote is closed first so the appended closers stay outside it.
func balance(s string) string {
	var stack []byte
	inString := false
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Fenced returns the content of the first fenced code block, optionally
// filtered by language tag (case-insensitive). A block tagged with a
// different language is skipped; an untagged block matches any filter.
// Supports ``` and ~~~ fences.
func Fenced(s string, langFilter ...string) (string, error) {
	s = trimBOM(strings.TrimSpace(s))
	if s == "" {
		return "", errors.New("empty input")
	}

	want := make(map[string]struct{}, len(langFilter))
	for _, lf := range langFilter {
		lf = strings.ToLower(strings.TrimSpace(lf))
		if lf != "" {
			want[lf] = struct{}{}
		}
	}

	search := func(fence string) (string, bool) {
		start := 0
		for {
			i := strings.Index(s[start:], fence)
			if i == -1 {
				return "", false
			}
			i += start
			afterFence := i + len(fence)
			nl := strings.IndexByte(s[afterFence:], '\n')
			if nl == -1 {
				return "", false
			}
			info := strings.TrimSpace(s[afterFence : afterFence+nl])
			contentStart := afterFence + nl + 1
			j := strings.Index(s[contentStart:], fence)
			if j == -1 {
				return "", false
			}
			content := s[contentStart : contentStart+j]
			if len(want) > 0 && info != "" {
				lang := strings.ToLower(strings.Fields(info)[0])
				if _, ok := want[lang]; !ok {
					start = contentStart + j + len(fence)
					continue
				}
			}
			return strings.TrimSpace(content), true
		}
	}

	if out, ok := search("```"); ok {
		return out, nil
	}
	if out, ok := search("~~~"); ok {
		return out, nil
	}
	return "", errors.New("no fenced code block found")
}

// BalancedRegion finds the first balanced {...} or [...] substring in s,
// ignoring braces and brackets inside string literals.
func BalancedRegion(s string) (string, error) {
	s = trimBOM(strings.TrimSpace(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			if out, ok := balancedFrom(s, i); ok {
				return out, nil
			}
		}
	}
	return "", errors.New("no balanced JSON object/array found")
}

func balancedFrom(s string, startIdx int) (string, bool) {
	if startIdx < 0 || startIdx >= len(s) {
		return "", false
	}
	start := s[startIdx]
	if start != '{' && start != '[' {
		return "", false
	}

	var (
		stack    []byte
		inString bool
		escape   bool
	)
	stack = append(stack, start)

	for i := startIdx + 1; i < len(s); i++ {
		c := s[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			top := stack[len(stack)-1]
			if (top == '{' && c != '}') || (top == '[' && c != ']') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[startIdx : i+1], true
			}
		}
	}
	return "", false
}

var labelLineRe = regexp.MustCompile(`(?i)^\s*(?:[-*\d.)\s]*)(skill(?:\s*name)?|level|gap\s*level|confidence|mentions?)\s*[:=]\s*(.+?)\s*$`)

// labeledRecords assembles skill-gap-shaped records from line-oriented label
// output ("Skill: SQL" / "Level: High" / ...). A new record starts at each
// skill label; a record is kept only when both the skill name and a level
// were present.
func labeledRecords(raw string) []map[string]interface{} {
	var (
		out []map[string]interface{}
		cur map[string]interface{}
	)
	flush := func() {
		if cur == nil {
			return
		}
		if _, ok := cur["skillName"]; ok {
			if _, ok := cur["gapLevel"]; ok {
				out = append(out, cur)
			}
		}
		cur = nil
	}
	for _, line := range strings.Split(raw, "\n") {
		m := labelLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := strings.ToLower(strings.Join(strings.Fields(m[1]), ""))
		value := strings.Trim(m[2], `"'`)
		switch label {
		case "skill", "skillname":
			flush()
			cur = map[string]interface{}{"skillName": value}
		case "level", "gaplevel":
			if cur != nil {
				cur["gapLevel"] = value
			}
		case "confidence":
			if cur != nil {
				if n, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err == nil {
					cur["confidence"] = n
				}
			}
		case "mention", "mentions":
			if cur != nil {
				if n, err := strconv.Atoi(value); err == nil {
					cur["mentions"] = n
				}
			}
		}
	}
	flush()
	return out
}

// trimBOM removes an optional UTF-8 BOM.
func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
