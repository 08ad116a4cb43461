package destination

import (
	"regexp"
	"strings"
)

// Option changes how Parse treats its input
type Option func(*parseOptions)

type parseOptions struct {
	strict bool
}

// Strict makes Parse reject a key given more than once.
// Without it the later value silently wins.
func Strict() Option {
	return func(o *parseOptions) {
		o.strict = true
	}
}

// Parse turns a destination specifier into a Destination. Both forms are accepted:
//
//	{ platform:iOS Simulator, id:7603609F-2903-4A8A-9FFA-F15626F548FD, OS:14.0, name:iPad (7th generation) }
//	platform=iOS Simulator,name=iPhone 11,OS=14.0
//
// Colon pairs without the surrounding braces are accepted as long as no `=` appears.
// Each pair is split on the first separator only, so a value may itself contain the separator.
func Parse(s string, opts ...Option) (Destination, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	input := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Destination{}, &ParseError{Input: input, Err: ErrEmptyDestination}
	}

	sep := "="
	switch {
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		s = s[1 : len(s)-1]
		sep = ":"
	case !strings.Contains(s, "=") && strings.Contains(s, ":"):
		// brace form pasted without its braces
		sep = ":"
	}

	d := Destination{}
	for _, segment := range strings.Split(s, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(segment), sep)
		if o.strict && d.Has(Key(key)) {
			return Destination{}, &ParseError{Input: input, Key: key, Err: ErrDuplicateKey}
		}
		d.entries = set(d.entries, Entry{Key: Key(key), Value: value})
	}

	for _, e := range d.entries {
		if !e.Key.Valid() {
			return Destination{}, unexpectedKey(input, string(e.Key))
		}
	}
	return d, nil
}

// MustParse is Parse for specifiers known to be valid, it panics otherwise
func MustParse(s string) Destination {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Blocks never nest and never contain a literal `}`, `xcodebuild -showdestinations` prints flat ones.
var blockRegexp = regexp.MustCompile(`\{[^}]+\}`)

// idLength is the length of a UUID shaped device identifier
const idLength = 36

// Observer is told about every brace block found by ExtractDestinations.
// err is non-nil when the block was dropped.
type Observer func(block string, err error)

// ExtractDestinations collects the destinations printed by `xcodebuild -showdestinations`.
// ok is false when the output holds no brace block at all, which is different from
// blocks being present but none of them qualifying.
// Only blocks with a 36 character id are kept, this filters out placeholders such as
// `id:dvtdevice-DVTiPhonePlaceholder-iphoneos:placeholder`.
func ExtractDestinations(output string, observer Observer) ([]Destination, bool) {
	blocks := blockRegexp.FindAllString(output, -1)
	if blocks == nil {
		return nil, false
	}

	notify := func(block string, err error) {
		if observer != nil {
			observer(block, err)
		}
	}

	destinations := []Destination{}
	for _, block := range blocks {
		d, err := Parse(block)
		if err != nil {
			notify(block, err)
			continue
		}
		if len(d.ID()) != idLength {
			notify(block, &ParseError{Input: block, Key: string(KeyID), Err: ErrInvalidID})
			continue
		}
		notify(block, nil)
		destinations = append(destinations, d)
	}
	return destinations, true
}
