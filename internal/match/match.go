// Package match decides whether message text invokes a prefixed command and
// offers free-text containment checks usable inside or outside dispatch.
package match

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/shlex"
)

// Result is the outcome of matching one message body against one command.
type Result struct {
	Matched bool
	Command string
	// Args is the whitespace-split text after the prefixed command word.
	Args []string
}

// Match reports whether body invokes command behind prefix, comparing case-sensitively.
// An empty prefix never matches.
func Match(body, prefix, command string) Result {
	return matchCommand(body, prefix, command, false)
}

// MatchFold is Match with case-insensitive comparison of the prefix and command word.
func MatchFold(body, prefix, command string) Result {
	return matchCommand(body, prefix, command, true)
}

func matchCommand(body, prefix, command string, fold bool) Result {
	if prefix == "" || command == "" {
		return Result{}
	}

	want := prefix + command
	if len(body) < len(want) {
		return Result{}
	}
	head := body[:len(want)]
	if fold {
		if !strings.EqualFold(head, want) {
			return Result{}
		}
	} else if head != want {
		return Result{}
	}

	rest := body[len(want):]
	if rest != "" {
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsSpace(r) {
			return Result{}
		}
	}

	return Result{
		Matched: true,
		Command: command,
		Args:    args(rest),
	}
}

// HasPrefix reports whether body starts with a non-empty prefix.
func HasPrefix(body, prefix string) bool {
	return prefix != "" && strings.HasPrefix(body, prefix)
}

// Contains reports whether body contains sub. With useRegex, sub is compiled
// as a regular expression and searched for; an invalid expression never matches.
func Contains(body, sub string, useRegex, caseSensitive bool) bool {
	if useRegex {
		return containsRegex(body, sub, caseSensitive)
	}
	if caseSensitive {
		return strings.Contains(body, sub)
	}
	return strings.Contains(strings.ToLower(body), strings.ToLower(sub))
}

// ContainsAny reports whether body contains at least one of candidates.
func ContainsAny(body string, candidates []string, caseSensitive bool) bool {
	for _, candidate := range candidates {
		if Contains(body, candidate, false, caseSensitive) {
			return true
		}
	}
	return false
}

func containsRegex(body, expr string, caseSensitive bool) bool {
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(body)
}

// QuotedArgs splits text shell-style so quoted phrases stay one argument.
func QuotedArgs(text string) ([]string, error) {
	parts, err := shlex.Split(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	if parts == nil {
		return []string{}, nil
	}
	return parts, nil
}

func args(rest string) []string {
	fields := strings.Fields(rest)
	if fields == nil {
		return []string{}
	}
	return fields
}
