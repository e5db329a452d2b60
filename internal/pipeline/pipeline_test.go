package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingHandler(name string, order *[]string, handled bool) Handler {
	return func(v any) (bool, error) {
		*order = append(*order, name)
		return handled, nil
	}
}

func TestAddLast_DispatchOrder(t *testing.T) {
	p := New()
	var order []string
	require.NoError(t, p.AddLast("a", recordingHandler("a", &order, false)))
	require.NoError(t, p.AddLast("b", recordingHandler("b", &order, false)))
	require.NoError(t, p.AddLast("c", recordingHandler("c", &order, true)))
	require.NoError(t, p.AddLast("d", recordingHandler("d", &order, false)))

	require.NoError(t, p.Dispatch("x"))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAddLast_DuplicateNameRejected(t *testing.T) {
	p := New()
	require.NoError(t, p.AddLast("a", func(v any) (bool, error) { return false, nil }))
	err := p.AddLast("a", func(v any) (bool, error) { return false, nil })
	assert.Error(t, err)
}

func TestAddBefore_Ordering(t *testing.T) {
	p := New()
	var order []string
	require.NoError(t, p.AddLast("a", recordingHandler("a", &order, false)))
	require.NoError(t, p.AddLast("c", recordingHandler("c", &order, false)))
	require.NoError(t, p.AddBefore("c", "b", recordingHandler("b", &order, false)))

	assert.Equal(t, []string{"a", "b", "c"}, p.Names())

	require.NoError(t, p.Dispatch("x"))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAddBefore_UnknownAnchor(t *testing.T) {
	p := New()
	err := p.AddBefore("missing", "b", func(v any) (bool, error) { return false, nil })
	assert.Error(t, err)
}

func TestRemove_ReusesSlotAndRelinks(t *testing.T) {
	p := New()
	var order []string
	require.NoError(t, p.AddLast("a", recordingHandler("a", &order, false)))
	require.NoError(t, p.AddLast("b", recordingHandler("b", &order, false)))
	require.NoError(t, p.AddLast("c", recordingHandler("c", &order, false)))

	require.NoError(t, p.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, p.Names())

	require.NoError(t, p.AddLast("d", recordingHandler("d", &order, false)))
	assert.Equal(t, []string{"a", "c", "d"}, p.Names())

	order = nil
	require.NoError(t, p.Dispatch("x"))
	assert.Equal(t, []string{"a", "c", "d"}, order)
}

func TestRemove_HeadAndTail(t *testing.T) {
	p := New()
	require.NoError(t, p.AddLast("a", func(v any) (bool, error) { return false, nil }))
	require.NoError(t, p.AddLast("b", func(v any) (bool, error) { return false, nil }))

	require.NoError(t, p.Remove("a"))
	assert.Equal(t, []string{"b"}, p.Names())

	require.NoError(t, p.Remove("b"))
	assert.Empty(t, p.Names())
}

func TestRemove_Unknown(t *testing.T) {
	p := New()
	assert.Error(t, p.Remove("nope"))
}

func TestReplace_KeepsPosition(t *testing.T) {
	p := New()
	var order []string
	require.NoError(t, p.AddLast("a", recordingHandler("a", &order, false)))
	require.NoError(t, p.AddLast("b", recordingHandler("b", &order, false)))

	require.NoError(t, p.Replace("a", func(v any) (bool, error) {
		order = append(order, "a2")
		return false, nil
	}))

	require.NoError(t, p.Dispatch("x"))
	assert.Equal(t, []string{"a2", "b"}, order)
}

func TestDispatch_StopsOnError(t *testing.T) {
	p := New()
	var order []string
	boom := errors.New("boom")
	require.NoError(t, p.AddLast("a", recordingHandler("a", &order, false)))
	require.NoError(t, p.AddLast("b", func(v any) (bool, error) { order = append(order, "b"); return false, boom }))
	require.NoError(t, p.AddLast("c", recordingHandler("c", &order, false)))

	err := p.Dispatch("x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestConcurrentDispatchAndMutation(t *testing.T) {
	p := New()
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("h%d", i)
		require.NoError(t, p.AddLast(name, func(v any) (bool, error) { return false, nil }))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Dispatch("x")
		}()
	}
	for i := 10; i < 15; i++ {
		name := fmt.Sprintf("h%d", i)
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			_ = p.AddLast(n, func(v any) (bool, error) { return false, nil })
		}(name)
	}
	wg.Wait()
}
