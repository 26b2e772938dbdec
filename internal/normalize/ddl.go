// Package normalize rewrites what is read from the origin so the destination accepts it:
// captured table definitions lose zero-date defaults, and copied rows lose zero-date values.
package normalize

import (
	"regexp"
	"strings"

	"dbmirror/internal/core"
)

// Replacement is a literal pattern and the text it is rewritten to.
type Replacement struct {
	Pattern string
	With    string
}

const nullDefault = "NULL DEFAULT NULL"

// ZeroDateDefaults are applied in order. NOT NULL forms come first so the shorter NULL
// forms never match inside them, and datetime forms come before date forms.
var ZeroDateDefaults = []Replacement{
	{Pattern: "NOT NULL DEFAULT '0000-00-00 00:00:00'", With: nullDefault},
	{Pattern: "NOT NULL DEFAULT '0000-00-00'", With: nullDefault},
	{Pattern: "NULL DEFAULT '0000-00-00 00:00:00'", With: nullDefault},
	{Pattern: "NULL DEFAULT '0000-00-00'", With: nullDefault},
}

var createTablePrefix = regexp.MustCompile(`(?i)^\s*CREATE\s+TABLE\s+`)

// Definition strips the leading CREATE TABLE keyword from def and rewrites every zero-date
// default into a nullable NULL default. A definition without matches is returned unchanged
// apart from the stripped keyword.
func Definition(def core.TableDefinition) core.TableDefinition {
	body := createTablePrefix.ReplaceAllString(string(def), "")
	return core.TableDefinition(Rewrite(body, ZeroDateDefaults))
}

// Rewrite applies every replacement to s, replacing all occurrences of each pattern.
func Rewrite(s string, replacements []Replacement) string {
	for _, r := range replacements {
		if r.Pattern == "" {
			continue
		}
		s = strings.ReplaceAll(s, r.Pattern, r.With)
	}
	return s
}
