package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSlice_Valid(t *testing.T) {
	tests := []struct {
		name    string
		ids     IDSlice
		wantErr error
	}{
		{"sequential", Sequential(5), nil},
		{"unsorted", IDSlice{3, 1, 2}, nil},
		{"single", IDSlice{1}, ErrTooFew},
		{"zero", IDSlice{0, 1, 2}, ErrZeroID},
		{"duplicate", IDSlice{1, 2, 2}, ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ids.Valid()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIDSlice_IndexContainsRemove(t *testing.T) {
	ids := NewIDSlice([]ID{4, 2, 9})
	require.Equal(t, IDSlice{2, 4, 9}, ids)

	assert.Equal(t, 1, ids.Index(4))
	assert.Equal(t, -1, ids.Index(3))
	assert.True(t, ids.Contains(2, 9))
	assert.False(t, ids.Contains(2, 5))

	others := ids.Remove(4)
	assert.Equal(t, IDSlice{2, 9}, others)
	assert.Equal(t, IDSlice{2, 4, 9}, ids, "Remove must not modify the receiver")
}
