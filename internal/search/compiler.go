package search

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Filter is a compiled, parameterized predicate set for the mail
// store's listing query. Values are always bound arguments; no user
// input is ever concatenated into the SQL text.
type Filter struct {
	Conditions []string
	Args       []interface{}
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// WhereClause renders the filter as a WHERE clause, or an empty string
// for a filter with no predicates.
func (f Filter) WhereClause() string {
	if f.IsEmpty() {
		return ""
	}
	return " WHERE " + strings.Join(f.Conditions, " AND ")
}

// Compiler turns parsed queries into filters.
type Compiler struct {
	logger *logrus.Logger
}

// NewCompiler creates a compiler that logs dropped predicates.
func NewCompiler(logger *logrus.Logger) *Compiler {
	return &Compiler{logger: logger}
}

// Compile builds the filter for a parsed query, optionally scoped to
// one account. Predicates are ordered most selective first: equality
// matches that hit indexes, then date ranges, then substring matches,
// with free text against subject or body last since the body column is
// not indexed.
func (c *Compiler) Compile(q Query, accountID string) Filter {
	var f Filter

	// The data model has no recipient column; to: is parsed for
	// forward compatibility but never compiled.
	if q.To != "" {
		c.logger.WithField("value", q.To).
			Warn("search operator to: is not supported and produces no filter")
	}

	if accountID != "" {
		f.add("account_id = ?", accountID)
	}
	if q.Category != "" {
		f.add("smart_category = ?", q.Category)
	}
	if q.HasAttachment {
		f.add("has_attachments = 1")
	}

	// Range bounds are strict on both sides: the boundary date itself
	// is excluded.
	if q.After != "" {
		if day, ok := c.parseDay("after", q.After); ok {
			f.add("date > ?", day)
		}
	}
	if q.Before != "" {
		if day, ok := c.parseDay("before", q.Before); ok {
			f.add("date < ?", day)
		}
	}

	if q.From != "" {
		f.add(`sender_email LIKE ? ESCAPE '\'`, likePattern(q.From))
	}
	if q.Subject != "" {
		f.add(`subject LIKE ? ESCAPE '\'`, likePattern(q.Subject))
	}
	if q.FreeText != "" {
		pattern := likePattern(q.FreeText)
		f.add(`(subject LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	return f
}

func (f *Filter) add(condition string, args ...interface{}) {
	f.Conditions = append(f.Conditions, condition)
	f.Args = append(f.Args, args...)
}

// parseDay validates a YYYY-MM-DD-prefixed operator value and returns
// UTC midnight of that day. Malformed values are dropped with a logged
// warning; the rest of the query still executes.
func (c *Compiler) parseDay(operator, value string) (time.Time, bool) {
	if !datePrefixRe.MatchString(value) {
		c.logger.WithFields(logrus.Fields{"operator": operator, "value": value}).
			Warn("invalid date in search operator, predicate dropped")
		return time.Time{}, false
	}
	day, err := time.ParseInLocation("2006-01-02", value[:10], time.UTC)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"operator": operator, "value": value}).
			Warn("invalid date in search operator, predicate dropped")
		return time.Time{}, false
	}
	return day, true
}

// likePattern wraps a user-supplied term in a contains pattern with all
// LIKE metacharacters escaped, so wildcard characters in the term match
// literally.
func likePattern(term string) string {
	return "%" + escapeLike(term) + "%"
}

// escapeLike escapes %, _ and the escape character itself.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, "%", `\%`)
	term = strings.ReplaceAll(term, "_", `\_`)
	return term
}
