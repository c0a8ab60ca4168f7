// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII URL slugs for membership packages
// (e.g. "Gói Vàng" becomes "goi-vang").
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the longest slug stored in a slug column.
const MaxLength = 120

// stripMarks decomposes accented runes and drops the combining marks.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts s into a lowercase, hyphen-separated ASCII slug of at most
// maxLen bytes, cutting on a hyphen boundary when it has to truncate.
func Make(s string, maxLen int) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var builder strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == 'đ':
			r = 'd'
		case r > unicode.MaxASCII:
			pendingHyphen = builder.Len() > 0
			continue
		}

		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen {
				builder.WriteByte('-')
				pendingHyphen = false
			}
			builder.WriteRune(r)
			continue
		}
		pendingHyphen = builder.Len() > 0
	}

	result := builder.String()
	if maxLen > 0 && len(result) > maxLen {
		result = result[:maxLen]
		if cut := strings.LastIndexByte(result, '-'); cut > 0 {
			result = result[:cut]
		}
	}
	return strings.Trim(result, "-")
}

// From is Make with [MaxLength].
func From(s string) string {
	return Make(s, MaxLength)
}
