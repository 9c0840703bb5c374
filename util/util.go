// Package util contains misc internal utilities.
package util

import "strings"

// ContainsString returns true if s is an element of strs
func ContainsString(strs []string, s string) bool {
	for _, v := range strs {
		if v == s {
			return true
		}
	}
	return false
}

// UniqueString returns the elements of strs with duplicates removed,
// keeping the first occurrence of each
func UniqueString(strs []string) []string {
	seen := make(map[string]struct{}, len(strs))
	out := make([]string, 0, len(strs))
	for _, s := range strs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CSV joins strs with commas, e.g. []string{"a","b"} => "a,b"
func CSV(strs []string) string {
	return strings.Join(strs, ",")
}
