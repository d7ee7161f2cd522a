package allocation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistenceError(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, NewPersistenceError("commit", nil))
	})

	t.Run("wraps and unwraps", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewPersistenceError("commit", cause)

		assert.True(t, IsPersistenceError(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "allocation commit failed: connection reset", err.Error())

		var pe *PersistenceError
		assert.True(t, errors.As(err, &pe))
		assert.False(t, pe.Conflict())
	})

	t.Run("does not double wrap", func(t *testing.T) {
		inner := NewPersistenceError("update donation", ErrConflict)
		outer := NewPersistenceError("commit", fmt.Errorf("sweep: %w", inner))

		var pe *PersistenceError
		assert.True(t, errors.As(outer, &pe))
		assert.Equal(t, "update donation", pe.Op)
		assert.True(t, pe.Conflict())
	})

	t.Run("plain errors are not persistence errors", func(t *testing.T) {
		assert.False(t, IsPersistenceError(errors.New("boom")))
	})
}
