package cleanup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/myba/internal/cleanup"
)

func TestRunFiresLIFO(t *testing.T) {
	s := cleanup.New()
	var order []int
	s.Push(func() { order = append(order, 1) })
	s.Push(func() { order = append(order, 2) })
	s.Push(func() { order = append(order, 3) })

	s.Run()
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestRunOnlyFiresOnce(t *testing.T) {
	s := cleanup.New()
	calls := 0
	s.Push(func() { calls++ })

	s.Run()
	s.Run()
	assert.Equal(t, 1, calls)
}

func TestPushAfterRunIsIgnoredByThatRun(t *testing.T) {
	s := cleanup.New()
	s.Run()

	calls := 0
	s.Push(func() { calls++ })
	s.Run()
	assert.Equal(t, 0, calls, "pushing after Run has already fired should not retroactively run")
}
