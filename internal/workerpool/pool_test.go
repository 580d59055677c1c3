package workerpool_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/workerpool"
)

func TestRunReplaysInSubmissionOrder(t *testing.T) {
	p := workerpool.New(4)

	var jobs []workerpool.Job
	for i := 0; i < 10; i++ {
		i := i
		jobs = append(jobs, workerpool.Job{
			Label: fmt.Sprintf("job-%d", i),
			Run: func(ctx context.Context) ([]byte, []byte, error) {
				return []byte(fmt.Sprintf("%d\n", i)), nil, nil
			},
		})
	}

	var out bytes.Buffer
	results, err := p.Run(context.Background(), jobs, &out, nil)
	require.NoError(t, err)
	require.Len(t, results, 10)

	expected := ""
	for i := 0; i < 10; i++ {
		expected += fmt.Sprintf("%d\n", i)
	}
	assert.Equal(t, expected, out.String())
}

func TestRunDrainsAfterFailure(t *testing.T) {
	p := workerpool.New(2)

	var jobs []workerpool.Job
	for i := 0; i < 5; i++ {
		i := i
		jobs = append(jobs, workerpool.Job{
			Run: func(ctx context.Context) ([]byte, []byte, error) {
				if i == 2 {
					return nil, nil, errors.New("boom")
				}
				return nil, nil, nil
			},
		})
	}

	results, err := p.Run(context.Background(), jobs, nil, nil)
	require.Error(t, err)
	require.Len(t, results, 5, "every job still ran despite the failure")
	for i, r := range results {
		assert.NotNil(t, r.Job.Run, "job %d has no result, so it never ran", i)
	}
}
