package destination

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BraceForm(t *testing.T) {
	want := []Entry{
		{Key: KeyID, Value: "ABCDEF12-0000-0000-0000-000000000000"},
		{Key: KeyOS, Value: "14.0"},
		{Key: KeyPlatform, Value: "iOS Simulator"},
		{Key: KeyName, Value: "iPad"},
	}

	d, err := Parse("{id:ABCDEF12-0000-0000-0000-000000000000,OS:14.0,platform:iOS Simulator,name:iPad}")
	require.NoError(t, err)
	assert.Equal(t, want, d.Entries())

	d, err = Parse("id:ABCDEF12-0000-0000-0000-000000000000,OS:14.0,platform:iOS Simulator,name:iPad")
	require.NoError(t, err)
	assert.Equal(t, want, d.Entries())
}

func TestParse_FlatForm(t *testing.T) {
	d, err := Parse("platform=iOS Simulator,name=iPhone 11,OS=14.0")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Key: KeyPlatform, Value: "iOS Simulator"},
		{Key: KeyName, Value: "iPhone 11"},
		{Key: KeyOS, Value: "14.0"},
	}, d.Entries())
	assert.Equal(t, "iOS Simulator", d.Platform())
	assert.Equal(t, "iPhone 11", d.Name())
	assert.Equal(t, "14.0", d.OS())
	assert.Equal(t, "", d.ID())
	assert.False(t, d.Has(KeyID))
}

func TestParse_ShowDestinationsBlock(t *testing.T) {
	d, err := Parse("  { platform:iOS Simulator, id:7603609F-2903-4A8A-9FFA-F15626F548FD, OS:14.0, name:iPad (7th generation) }  ")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"platform": "iOS Simulator",
		"id":       "7603609F-2903-4A8A-9FFA-F15626F548FD",
		"OS":       "14.0",
		"name":     "iPad (7th generation)",
	}, d.Map())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantKey string
	}{
		{name: "empty", input: "", wantErr: ErrEmptyDestination},
		{name: "whitespace", input: "   ", wantErr: ErrEmptyDestination},
		{name: "unknown brace key", input: "{foo:bar}", wantErr: ErrUnexpectedKey, wantKey: "foo"},
		{name: "unknown flat key", input: "name=iPhone 11,arch=arm64", wantErr: ErrUnexpectedKey, wantKey: "arch"},
		{name: "mixed separators", input: "name:iPhone 11,OS=14.0", wantErr: ErrUnexpectedKey, wantKey: "name:iPhone 11"},
		{name: "trailing comma", input: "name=iPhone 11,", wantErr: ErrUnexpectedKey, wantKey: ""},
		{name: "empty braces", input: "{}", wantErr: ErrUnexpectedKey, wantKey: ""},
		{name: "key is case sensitive", input: "os=14.0", wantErr: ErrUnexpectedKey, wantKey: "os"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.wantKey, parseErr.Key)
			assert.Equal(t, tt.input, parseErr.Input)
		})
	}
}

func TestParse_ErrorMessageNamesKey(t *testing.T) {
	_, err := Parse("{foo:bar}")
	require.Error(t, err)
	assert.Equal(t, "invalid destination: unexpected key <foo>", err.Error())

	_, err = Parse(" ")
	require.Error(t, err)
	assert.Equal(t, "invalid destination: empty destination", err.Error())
}

func TestParse_SplitsOnFirstSeparatorOnly(t *testing.T) {
	d, err := Parse("{name:Build: Nightly, OS:17.0}")
	require.NoError(t, err)
	assert.Equal(t, "Build: Nightly", d.Name())

	d, err = Parse("name=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", d.Name())
}

func TestParse_MissingSeparatorGivesEmptyValue(t *testing.T) {
	d, err := Parse("name")
	require.NoError(t, err)
	v, ok := d.Get(KeyName)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParse_DuplicateKeys(t *testing.T) {
	d, err := Parse("name=iPhone 11,OS=14.0,name=iPhone 12")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Key: KeyName, Value: "iPhone 12"},
		{Key: KeyOS, Value: "14.0"},
	}, d.Entries())

	_, err = Parse("name=iPhone 11,OS=14.0,name=iPhone 12", Strict())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestEncode_RoundTrip(t *testing.T) {
	inputs := []string{
		"platform=iOS Simulator,name=iPhone 11,OS=14.0",
		"id=7603609F-2903-4A8A-9FFA-F15626F548FD",
		"OS=latest,name=iPad Pro (12.9-inch) (6th generation),platform=iOS Simulator",
	}
	for _, in := range inputs {
		d, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, in, Encode(d))
		assert.Equal(t, in, d.String())
	}
}

func TestEncode_BraceFormToFlat(t *testing.T) {
	d := MustParse("{ platform:iOS Simulator, OS:14.0, name:iPhone 11 }")
	assert.Equal(t, "platform=iOS Simulator,OS=14.0,name=iPhone 11", Encode(d))
	assert.Equal(t, "", Encode(Destination{}))
}

func TestDestination_WithDoesNotMutate(t *testing.T) {
	d := MustParse("platform=iOS,name=My iPhone")
	withID, err := d.With(KeyID, "00008030-001A2B3C4D5E6F70")
	require.NoError(t, err)

	assert.False(t, d.Has(KeyID))
	assert.Equal(t, "platform=iOS,name=My iPhone,id=00008030-001A2B3C4D5E6F70", withID.String())

	_, err = d.With(Key("arch"), "arm64")
	assert.ErrorIs(t, err, ErrUnexpectedKey)
}

func TestNew(t *testing.T) {
	d, err := New(Entry{Key: KeyName, Value: "iPhone 15"}, Entry{Key: KeyOS, Value: "17.2"})
	require.NoError(t, err)
	assert.Equal(t, "name=iPhone 15,OS=17.2", d.String())

	_, err = New(Entry{Key: "variant", Value: "Mac Catalyst"})
	assert.ErrorIs(t, err, ErrUnexpectedKey)
}

func TestKey_Valid(t *testing.T) {
	for _, k := range Keys {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Key("Name").Valid())
	assert.False(t, Key("").Valid())
}
