package recipe

import "github.com/mattn/go-shellwords"

// SplitExtraFlags parses a user-supplied extra-flags string (as might be
// set per recipe in a load request's options) into argv-safe tokens,
// respecting quoted substrings. Parse failures yield no extra flags rather
// than a launch error; a malformed flags string should not block inference
// entirely.
func SplitExtraFlags(s string) []string {
	if s == "" {
		return nil
	}
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil
	}
	return args
}
