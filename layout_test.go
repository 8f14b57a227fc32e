package fslab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLayout(t *testing.T) {
	testCases := []struct {
		name      string
		nblocks   uint64
		blockSize uint64
		wantMeta  uint64
		wantErr   bool
	}{
		{
			name:      "reference geometry",
			nblocks:   20,
			blockSize: 64,
			wantMeta:  7,
		},
		{
			name:      "smallest usable disk",
			nblocks:   7,
			blockSize: 64,
			wantMeta:  2,
		},
		{
			name:      "large blocks",
			nblocks:   64,
			blockSize: 512,
			wantMeta:  5,
		},
		{
			name:      "zero blocks",
			nblocks:   0,
			blockSize: 64,
			wantErr:   true,
		},
		{
			name:      "zero block size",
			nblocks:   20,
			blockSize: 0,
			wantErr:   true,
		},
		{
			name:      "too small for metadata",
			nblocks:   4,
			blockSize: 64,
			wantErr:   true,
		},
		{
			name:      "bitmap cannot cover data area",
			nblocks:   10000,
			blockSize: 4,
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := CalculateLayout(tc.nblocks, tc.blockSize)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrGeometry)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantMeta, l.Meta)
			assert.Equal(t, tc.nblocks, l.Blocks)
			assert.Equal(t, tc.nblocks-tc.wantMeta, l.DataBlocks())
		})
	}
}

func TestLayoutDescriptorBlocks(t *testing.T) {
	l, err := CalculateLayout(20, 64)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, l.DescriptorBlocks())
	assert.Equal(t, uint64(6*64/descriptorSize), l.DescriptorCapacity())
}

func TestLayoutBlockBitMapping(t *testing.T) {
	l, err := CalculateLayout(20, 64)
	require.NoError(t, err)

	for bit := uint64(0); bit < l.DataBlocks(); bit++ {
		block := l.DataBlock(bit)
		assert.GreaterOrEqual(t, block, l.Meta)
		assert.Less(t, block, l.Blocks)
		assert.Equal(t, bit, l.Bit(block))
	}
}
