package outbound

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

func TestPendingHeapOrdering(t *testing.T) {
	ph := pendingHeap{}
	push := func(prec overlay.Precedence, order uint64) {
		heap.Push(&ph, &entry{
			msg:   &overlay.Message{Kind: overlay.MsgTransaction},
			prec:  prec,
			order: order,
		})
	}

	push(overlay.PrecedenceLow, 1)
	push(overlay.PrecedenceHighest, 2)
	push(overlay.PrecedenceMedium, 3)
	push(overlay.PrecedenceMedium, 4)
	push(overlay.PrecedenceHighest, 5)

	var got []uint64
	for ph.Len() > 0 {
		got = append(got, heap.Pop(&ph).(*entry).order)
	}
	// precedence descending, fifo within equal precedence
	require.Equal(t, []uint64{2, 5, 3, 4, 1}, got)
}

func TestClassifier(t *testing.T) {
	source := overlay.NewPeerID("10.0.0.9", 3000)

	t.Run("forwarded transaction records its source", func(t *testing.T) {
		mc, exclude, ok := Classify(&overlay.Message{
			Kind:   overlay.MsgTransaction,
			Origin: overlay.OriginForward(source),
		})
		require.True(t, ok)
		require.Equal(t, source, exclude)
		require.Equal(t, overlay.MsgClass{Kind: overlay.MsgTransaction, Forwarded: true}, mc)
	})

	t.Run("authored transaction has no exclusion", func(t *testing.T) {
		mc, _, ok := Classify(&overlay.Message{Kind: overlay.MsgTransaction})
		require.False(t, ok)
		require.Equal(t, overlay.MsgClass{Kind: overlay.MsgTransaction}, mc)
	})

	t.Run("origin is ignored for kinds without one", func(t *testing.T) {
		mc, _, ok := Classify(&overlay.Message{
			Kind:   overlay.MsgRequestBlocks,
			Origin: overlay.OriginForward(source),
		})
		require.False(t, ok)
		require.Equal(t, overlay.MsgClass{Kind: overlay.MsgRequestBlocks}, mc)
	})
}
