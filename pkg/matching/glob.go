package matching

import "path"

// Glob matches name against a wildcard pattern, case sensitive.
// ? matches one character, * any run of characters. Patterns come
// from course metadata and role configuration; a malformed pattern
// simply matches nothing.
func Glob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
