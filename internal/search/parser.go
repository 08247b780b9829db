// Package search turns a small operator-based query grammar into
// parameterized, injection-safe SQL predicates for the mail store.
package search

import (
	"regexp"
	"strings"
	"unicode"
)

// Query is the structured result of parsing a search string. String
// fields are empty when the operator was absent.
type Query struct {
	From     string
	To       string
	Subject  string
	Category string

	HasAttachment bool

	// Before and After hold the raw operator values; validation happens
	// at compile time so the rest of the query still executes when a
	// date is malformed.
	Before string
	After  string

	FreeText string
}

// IsEmpty reports whether no operator or free text was parsed.
func (q Query) IsEmpty() bool {
	return q == Query{}
}

var (
	// operatorKeyRe matches a bare operator key before the first colon.
	operatorKeyRe = regexp.MustCompile(`^\w+$`)

	// operatorValueRe recognizes a value that itself looks like an
	// unconsumed operator.
	operatorValueRe = regexp.MustCompile(`^\w+:`)

	// datePrefixRe exempts date-like values from the bare-prefix rule,
	// so full timestamps with colons parse as values.
	datePrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Parse parses a raw query string. Tokens of the form key:value or
// key:"quoted value" become operators; everything else, including
// tokens with unrecognized keys, accumulates as free text. Bare
// operator prefixes degrade to skipped tokens instead of corrupting
// the parse.
func Parse(raw string) Query {
	var q Query
	var free []string

	queue := tokenize(raw)
	for len(queue) > 0 {
		tok := queue[0]
		queue = queue[1:]

		key, value, ok := splitOperator(tok)
		if !ok {
			free = append(free, tok)
			continue
		}

		// A key with no value is a bare prefix; drop it without
		// consuming the text that follows.
		if value == "" {
			continue
		}

		// A value that itself looks like another operator means the key
		// was a bare prefix. Rescan the value on its own. Date-like
		// values are exempt even when they contain colons.
		if operatorValueRe.MatchString(value) && !datePrefixRe.MatchString(value) {
			queue = append([]string{value}, queue...)
			continue
		}

		value = unquote(value)

		switch strings.ToLower(key) {
		case "from":
			q.From = value
		case "to":
			q.To = value
		case "subject":
			q.Subject = value
		case "category":
			q.Category = value
		case "has":
			if v := strings.ToLower(value); v == "attachment" || v == "attachments" {
				q.HasAttachment = true
			}
		case "before":
			q.Before = value
		case "after":
			q.After = value
		default:
			// Unrecognized operator keys stay literal free text.
			free = append(free, tok)
		}
	}

	q.FreeText = strings.Join(free, " ")
	return q
}

// tokenize splits raw on whitespace while keeping quoted spans intact.
func tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range raw {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !inQuotes:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// splitOperator splits tok at its first colon into key and value.
// Returns ok=false for tokens that cannot be operators.
func splitOperator(tok string) (key, value string, ok bool) {
	idx := strings.Index(tok, ":")
	if idx <= 0 {
		return "", "", false
	}
	key = tok[:idx]
	if !operatorKeyRe.MatchString(key) {
		return "", "", false
	}
	return key, tok[idx+1:], true
}

// unquote strips one pair of surrounding double quotes.
func unquote(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return value[1 : len(value)-1]
	}
	return value
}
