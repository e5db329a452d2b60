package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature_Valid(t *testing.T) {
	cases := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"basic types", "ybnqiuxtdsogh"},
		{"array of string", "as"},
		{"nested array", "aas"},
		{"struct", "(si)"},
		{"nested struct", "(s(ii))"},
		{"dict entry in array", "a{sv}"},
		{"variant", "v"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig, err := ParseSignature(tc.sig)
			require.NoError(t, err)
			assert.Equal(t, tc.sig, sig.String())
		})
	}
}

func TestParseSignature_Invalid(t *testing.T) {
	cases := []string{
		"(",
		")",
		"(si",
		"a",
		"{si}",    // dict entry outside array
		"a{sii}",  // 3 members
		"a{}",     // empty dict entry
		"()",      // empty struct
		"a{(i)s}", // struct key not basic
		"z",       // unknown code
	}
	for _, sig := range cases {
		t.Run(sig, func(t *testing.T) {
			_, err := ParseSignature(sig)
			assert.Error(t, err)
		})
	}
}

func TestSignature_SingleAndEmpty(t *testing.T) {
	empty, err := ParseSignature("")
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.False(t, empty.Single())

	one, err := ParseSignature("s")
	require.NoError(t, err)
	assert.True(t, one.Single())

	two, err := ParseSignature("ss")
	require.NoError(t, err)
	assert.False(t, two.Single())
}

func TestType_Alignment(t *testing.T) {
	sig := MustParseSignature("ynixdsa{sv}(iy)")
	aligns := []int{1, 2, 4, 8, 8, 4, 4, 8}
	require.Len(t, sig.Types(), len(aligns))
	for i, ty := range sig.Types() {
		assert.Equal(t, aligns[i], ty.Alignment(), "type %d (%s)", i, ty.String())
	}
}

func TestObjectPath_Validate(t *testing.T) {
	valid := []string{"/", "/org", "/org/freedesktop/DBus", "/a/b_1/C2"}
	for _, p := range valid {
		assert.NoError(t, ObjectPath(p).Validate(), p)
	}

	invalid := []string{"", "no-leading-slash", "/trailing/", "/double//slash", "/bad-char!"}
	for _, p := range invalid {
		assert.Error(t, ObjectPath(p).Validate(), p)
	}
}

func TestMaxStructDepth(t *testing.T) {
	deep := ""
	for i := 0; i < MaxStructDepth+5; i++ {
		deep += "a"
	}
	deep += "y"
	_, err := ParseSignature(deep)
	assert.Error(t, err)
}
