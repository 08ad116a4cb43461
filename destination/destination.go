package destination

import (
	"strings"
)

// Key is one of the fields accepted in a destination specifier
type Key string

const (
	KeyID       Key = "id"
	KeyOS       Key = "OS"
	KeyPlatform Key = "platform"
	KeyName     Key = "name"
)

// Keys lists every accepted key
var Keys = []Key{KeyID, KeyOS, KeyPlatform, KeyName}

// Valid reports whether the key belongs to the accepted set
func (k Key) Valid() bool {
	switch k {
	case KeyID, KeyOS, KeyPlatform, KeyName:
		return true
	}
	return false
}

// Entry is a single key/value pair of a destination
type Entry struct {
	Key   Key    `json:"key"`
	Value string `json:"value"`
}

// Destination is an ordered, validated set of destination fields.
// The zero value is an empty destination.
type Destination struct {
	entries []Entry
}

// New builds a destination from entries, validating every key.
// A repeated key keeps its first position and takes the later value.
func New(entries ...Entry) (Destination, error) {
	d := Destination{}
	for _, e := range entries {
		if !e.Key.Valid() {
			return Destination{}, unexpectedKey("", string(e.Key))
		}
		d.entries = set(d.entries, e)
	}
	return d, nil
}

func set(entries []Entry, e Entry) []Entry {
	for i := range entries {
		if entries[i].Key == e.Key {
			entries[i].Value = e.Value
			return entries
		}
	}
	return append(entries, e)
}

// Get returns the value for key and whether it is present
func (d Destination) Get(key Key) (string, bool) {
	for _, e := range d.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present
func (d Destination) Has(key Key) bool {
	_, ok := d.Get(key)
	return ok
}

// With returns a copy of the destination with key set to value.
// The receiver is left untouched.
func (d Destination) With(key Key, value string) (Destination, error) {
	if !key.Valid() {
		return Destination{}, unexpectedKey("", string(key))
	}
	entries := make([]Entry, len(d.entries), len(d.entries)+1)
	copy(entries, d.entries)
	return Destination{entries: set(entries, Entry{Key: key, Value: value})}, nil
}

// Entries returns a copy of the entries in insertion order
func (d Destination) Entries() []Entry {
	entries := make([]Entry, len(d.entries))
	copy(entries, d.entries)
	return entries
}

func (d Destination) Len() int {
	return len(d.entries)
}

func (d Destination) IsEmpty() bool {
	return len(d.entries) == 0
}

func (d Destination) ID() string {
	v, _ := d.Get(KeyID)
	return v
}

func (d Destination) OS() string {
	v, _ := d.Get(KeyOS)
	return v
}

func (d Destination) Platform() string {
	v, _ := d.Get(KeyPlatform)
	return v
}

func (d Destination) Name() string {
	v, _ := d.Get(KeyName)
	return v
}

// Map returns the fields as a plain map, e.g. for JSON responses
func (d Destination) Map() map[string]string {
	m := make(map[string]string, len(d.entries))
	for _, e := range d.entries {
		m[string(e.Key)] = e.Value
	}
	return m
}

// String returns the flat key=value form
func (d Destination) String() string {
	return Encode(d)
}

// Encode produces the `key1=value1,key2=value2` option value xcodebuild expects.
// Values are not escaped, a value holding `,` or `=` will not parse back the same.
func Encode(d Destination) string {
	pairs := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		pairs = append(pairs, string(e.Key)+"="+e.Value)
	}
	return strings.Join(pairs, ",")
}
