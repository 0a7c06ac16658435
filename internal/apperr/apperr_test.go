package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := map[string]struct {
		err  error
		want Kind
	}{
		"validation":           {Validation("bad input"), KindValidation},
		"not found":            {NotFound("order %s missing", "o1"), KindNotFound},
		"conflict":             {Conflict("duplicate", nil), KindConflict},
		"external":             {External("billing down", nil), KindExternal},
		"transient":            {Transient("db gone", errors.New("broken pipe")), KindTransient},
		"plain error":          {errors.New("who knows"), KindTransient},
		"wrapped classified":   {fmt.Errorf("handler: %w", Validation("bad")), KindValidation},
		"deeply wrapped":       {fmt.Errorf("a: %w", fmt.Errorf("b: %w", NotFound("gone"))), KindNotFound},
		"wrapped unclassified": {fmt.Errorf("a: %w", errors.New("b")), KindTransient},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	require.True(t, IsKind(Conflict("dup", nil), KindConflict))
	require.False(t, IsKind(Conflict("dup", nil), KindValidation))
	require.False(t, IsKind(nil, KindTransient))
}

func TestErrorMessage(t *testing.T) {
	inner := errors.New("connection refused")
	err := Transient("dial rabbitmq", inner)
	require.Equal(t, "dial rabbitmq: connection refused", err.Error())
	require.ErrorIs(t, err, inner)

	require.Equal(t, "bad input", Validation("bad input").Error())
}
