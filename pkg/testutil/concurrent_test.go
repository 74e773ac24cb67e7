package testutil

import (
	"errors"
	"fmt"
	"testing"

	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/sentinel"

	"github.com/stretchr/testify/assert"
)

func TestRunConcurrent_Buckets(t *testing.T) {
	result := RunConcurrent(8, func(idx int) error {
		switch idx % 4 {
		case 0:
			return nil
		case 1:
			return dErrors.New(dErrors.CodeConflict, "already voted")
		case 2:
			return fmt.Errorf("lookup: %w", sentinel.ErrNotFound)
		default:
			return errors.New("boom")
		}
	})

	assert.Equal(t, int32(2), result.Successes)
	assert.Equal(t, int32(2), result.Conflicts)
	assert.Equal(t, int32(2), result.NotFounds)
	assert.Equal(t, int32(2), result.Errors)
	assert.Equal(t, int32(8), result.Total())
}

func TestRunConcurrentCollect(t *testing.T) {
	values, errs := RunConcurrentCollect(5, func(idx int) (int, error) {
		if idx == 4 {
			return 0, errors.New("skip")
		}
		return idx * 10, nil
	})

	assert.ElementsMatch(t, []int{0, 10, 20, 30}, values)
	assert.Len(t, errs, 1)
}
