// Package format wraps the libphonenumber port behind the
// reset-and-replay contract the phone field relies on: every edit feeds
// the full text from scratch, so the display string, canonical value
// and detected region can never drift from each other.
package format

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Number is the structured view of the current parse.
type Number struct {
	NationalSignificantNumber string
	Type                      phonenumbers.PhoneNumberType
}

// Formatter turns a running input of digits/"+"/punctuation into a
// progressively formatted display string plus a canonical value. It is
// not append-only: callers must Reset and re-feed the full text on
// every edit.
type Formatter struct {
	defaultRegion string
	raw           string
	parsed        *phonenumbers.PhoneNumber
}

// New returns a Formatter. defaultRegion may be empty, in which case
// only international ("+"-prefixed) input can be interpreted.
func New(defaultRegion string) *Formatter {
	return &Formatter{defaultRegion: strings.ToUpper(strings.TrimSpace(defaultRegion))}
}

// DefaultRegion returns the configured fallback region, if any.
func (f *Formatter) DefaultRegion() string {
	return f.defaultRegion
}

// Reset clears all accumulated input.
func (f *Formatter) Reset() {
	f.raw = ""
	f.parsed = nil
}

// Input replaces the accumulated text with the given text and returns
// the display string for it. Unparseable or incomplete input degrades
// to the cleaned raw text; no error is ever returned.
func (f *Formatter) Input(text string) string {
	f.raw = Clean(text)
	f.parsed = nil
	if f.raw == "" {
		return ""
	}

	region := f.defaultRegion
	if strings.HasPrefix(f.raw, "+") {
		region = ""
	}
	num, err := phonenumbers.Parse(f.raw, region)
	if err != nil {
		return f.raw
	}
	f.parsed = num

	var display string
	if strings.HasPrefix(f.raw, "+") || f.defaultRegion == "" {
		display = phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
	} else {
		display = phonenumbers.Format(num, phonenumbers.NATIONAL)
	}
	// Formatting must neither drop nor invent digits; partial input can
	// lose a trunk prefix in the round trip, in which case the cleaned
	// raw text is the honest rendering.
	if digitsOf(display) != digitsOf(f.raw) {
		return f.raw
	}
	return display
}

// NumberValue returns the E.164 canonical value. ok is false while the
// accumulated text is not a complete, structurally valid number.
func (f *Formatter) NumberValue() (string, bool) {
	if f.parsed == nil || !phonenumbers.IsValidNumber(f.parsed) {
		return "", false
	}
	return phonenumbers.Format(f.parsed, phonenumbers.E164), true
}

// Number returns the national significant number and type of the
// current parse. ok is false when nothing parseable has been fed.
func (f *Formatter) Number() (Number, bool) {
	if f.parsed == nil {
		return Number{}, false
	}
	return Number{
		NationalSignificantNumber: phonenumbers.GetNationalSignificantNumber(f.parsed),
		Type:                      phonenumbers.GetNumberType(f.parsed),
	}, true
}

// Country returns the detected ISO-3166 alpha-2 region. A partial
// number still yields a region once its calling code is unambiguous.
func (f *Formatter) Country() (string, bool) {
	if f.parsed == nil {
		return "", false
	}
	if r := phonenumbers.GetRegionCodeForNumber(f.parsed); r != "" && r != "ZZ" {
		return r, true
	}
	if cc := f.parsed.GetCountryCode(); cc != 0 {
		if r := phonenumbers.GetRegionCodeForCountryCode(int(cc)); r != "" && r != "ZZ" {
			return r, true
		}
	}
	return "", false
}

// IsValid reports whether the accumulated text is a complete,
// structurally valid number.
func (f *Formatter) IsValid() bool {
	return f.parsed != nil && phonenumbers.IsValidNumber(f.parsed)
}

// IsMobile reports whether the current parse is classified as exactly
// a mobile number.
func (f *Formatter) IsMobile() bool {
	return f.parsed != nil && phonenumbers.GetNumberType(f.parsed) == phonenumbers.MOBILE
}

// Clean reduces text to the characters the formatter consumes: an
// optional leading "+" followed by digits. Separators and any other
// punctuation are dropped.
func Clean(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
