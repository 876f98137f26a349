package observer_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/prefixbot/pkg/observer"
)

func TestNotifyReachesEveryListener(t *testing.T) {
	o := observer.New[int]()

	var sum atomic.Int64
	o.Register(func(v int) { sum.Add(int64(v)) })
	o.Register(func(v int) { sum.Add(int64(v) * 10) })

	o.Notify(2)
	o.Wait()

	assert.Equal(t, int64(22), sum.Load())
}

func TestDeregister(t *testing.T) {
	o := observer.New[string](observer.Synchronous())

	var got []string
	id := o.Register(func(s string) { got = append(got, s) })
	require.NotEmpty(t, id)
	require.Equal(t, 1, o.Len())

	o.Notify("first")
	o.Deregister(id)
	o.Notify("second")

	assert.Equal(t, []string{"first"}, got)
	assert.Zero(t, o.Len())
}

func TestRegisterReturnsDistinctIDs(t *testing.T) {
	o := observer.New[struct{}]()
	a := o.Register(func(struct{}) {})
	b := o.Register(func(struct{}) {})
	assert.NotEqual(t, a, b)
}
