// Package identity derives the stable identifiers used to join source users
// to target accounts: a latin login handle built from the display name, and
// a name-based UUID built from the enterprise email.
package identity

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/orgsync/pkg/directory"
)

// surnameReadings forces the surname reading of characters whose default
// reading differs when they open a name.
var surnameReadings = map[rune]string{
	'曾': "zeng",
	'卜': "bu",
	'区': "ou",
	'查': "zha",
	'单': "shan",
	'朴': "piao",
	'仇': "qiu",
	'黑': "he",
	'盖': "ge",
	'种': "chong",
	'繁': "po",
	'召': "shao",
}

var pinyinArgs = pinyin.Args{Style: pinyin.Normal}

// SurnameReading returns the forced surname reading of r, if any.
func SurnameReading(r rune) (string, bool) {
	s, ok := surnameReadings[r]
	return s, ok
}

// Units splits a name into transliteration units. Each Han character is one
// pinyin syllable; each run of other letters or digits is one unit. Space and
// punctuation separate units and are dropped.
func Units(name string) []string {
	name = norm.NFKC.String(strings.TrimSpace(name))
	var (
		units []string
		run   strings.Builder
	)
	flush := func() {
		if run.Len() > 0 {
			units = append(units, run.String())
			run.Reset()
		}
	}
	for _, r := range name {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			reading := ""
			if len(units) == 0 {
				reading, _ = SurnameReading(r)
			}
			if reading == "" {
				if py := pinyin.SinglePinyin(r, pinyinArgs); len(py) > 0 {
					reading = py[0]
				}
			}
			if reading != "" {
				units = append(units, reading)
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			run.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return units
}

// LoginHandle transliterates a display name into "<given>.<surname>",
// lowercase. A single-unit name yields that unit alone.
func LoginHandle(name string) string {
	units := Units(name)
	switch len(units) {
	case 0:
		return ""
	case 1:
		return units[0]
	}
	return strings.Join(units[1:], "") + "." + units[0]
}

// CorrelationKey returns the RFC 4122 version 5 UUID of the lowercased email
// in the DNS namespace. An empty email has no key.
func CorrelationKey(email string) string {
	if email == "" {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(strings.ToLower(email))).String()
}

// AssignHandles sets LoginHandle and CorrelationKey on every user. Handles
// are the bare transliteration; users sharing a name share a handle until a
// target assigns a free login name on create. The input slice is not modified.
func AssignHandles(users []directory.User) []directory.User {
	out := make([]directory.User, len(users))
	copy(out, users)
	for i := range out {
		out[i].CorrelationKey = CorrelationKey(out[i].Email)
		out[i].LoginHandle = LoginHandle(out[i].Name)
	}
	return out
}

// FreeHandle returns handle when taken does not hold it, otherwise the first
// of handle2, handle3, ... that is free.
func FreeHandle(handle string, taken func(string) bool) string {
	if !taken(handle) {
		return handle
	}
	for n := 2; ; n++ {
		if c := handle + strconv.Itoa(n); !taken(c) {
			return c
		}
	}
}
