package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofs/pkg/dbus/types"
)

func echoMethod(ctx context.Context, args []any) ([]any, error) {
	return args, nil
}

func TestAddBuildLookup(t *testing.T) {
	r := New()
	r.Add("/org/example/Thing").
		Method("org.example.Thing", "Echo", echoMethod).
		Method("org.example.Thing", "Ping", func(ctx context.Context, args []any) ([]any, error) {
			return nil, nil
		}).
		Build()

	fn, ok := r.Lookup("/org/example/Thing", "org.example.Thing", "Echo")
	require.True(t, ok)
	results, err := fn(context.Background(), []any{"hi"})
	require.NoError(t, err)
	assert.Equal(t, []any{"hi"}, results)

	_, ok = r.Lookup("/org/example/Thing", "org.example.Thing", "Missing")
	assert.False(t, ok)

	_, ok = r.Lookup("/org/example/Other", "org.example.Thing", "Echo")
	assert.False(t, ok)
}

func TestAdd_ReplacesPriorRegistration(t *testing.T) {
	r := New()
	r.Add("/p").Method("i", "A", echoMethod).Build()
	r.Add("/p").Method("i", "B", echoMethod).Build()

	_, ok := r.Lookup("/p", "i", "A")
	assert.False(t, ok, "replacing a path's registration should drop its prior methods")

	_, ok = r.Lookup("/p", "i", "B")
	assert.True(t, ok)
}

func TestMethod_NilFuncPanics(t *testing.T) {
	r := New()
	assert.Panics(t, func() {
		r.Add("/p").Method("i", "A", nil)
	})
}

func TestPathsAndInterfaces(t *testing.T) {
	r := New()
	r.Add("/a").Method("i1", "M", echoMethod).Method("i2", "N", echoMethod).Build()
	r.Add("/b").Method("i1", "M", echoMethod).Build()

	paths := r.Paths()
	assert.ElementsMatch(t, []types.ObjectPath{"/a", "/b"}, paths)

	ifaces := r.Interfaces("/a")
	assert.ElementsMatch(t, []string{"i1", "i2"}, ifaces)

	assert.Nil(t, r.Interfaces("/missing"))
}

func TestRemove(t *testing.T) {
	r := New()
	r.Add("/a").Method("i", "M", echoMethod).Build()
	r.Remove("/a")

	_, ok := r.Lookup("/a", "i", "M")
	assert.False(t, ok)
}
