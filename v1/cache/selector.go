package cache

import (
	"regexp"

	"github.com/tidwall/match"
)

// Selector filters keys for bulk operations. It is evaluated against a
// snapshot of the live (non-expired) keys taken when the operation starts.
type Selector func(key string) bool

// SelectKeys matches an explicit set of keys.
func SelectKeys(keys ...string) Selector {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}

// SelectGlob matches keys against a glob pattern with `*` and `?`
// wildcards.
func SelectGlob(pattern string) Selector {
	return func(key string) bool {
		return match.Match(key, pattern)
	}
}

// SelectRegexp matches keys against a compiled regular expression.
func SelectRegexp(re *regexp.Regexp) Selector {
	return func(key string) bool {
		return re.MatchString(key)
	}
}
