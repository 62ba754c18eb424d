// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives URL- and object-key-friendly names from template titles.
package slug

import (
	"regexp"
	"strings"
)

// Fallback is used when a title has no usable characters.
const Fallback = "untitled"

// MaxLength bounds slugs used in object keys.
const MaxLength = 60

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// whitespace matches runs of any whitespace.
	whitespace = regexp.MustCompile(`\s+`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// ForKey returns a slug safe for object storage keys: any whitespace
// becomes a hyphen, the result is cut to at most max bytes at a hyphen
// boundary when possible, and an empty result becomes Fallback.
// max <= 0 means MaxLength.
func ForKey(s string, max int) string {
	if max <= 0 {
		max = MaxLength
	}
	result := Generate(whitespace.ReplaceAllString(s, " "))
	if len(result) > max {
		cut := result[:max]
		if result[max] != '-' {
			if i := strings.LastIndexByte(cut, '-'); i > 0 {
				cut = cut[:i]
			}
		}
		result = strings.Trim(cut, "-")
	}
	if result == "" {
		return Fallback
	}
	return result
}
