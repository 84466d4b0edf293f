package overlay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchain/kestrel-go/model/overlay"
)

func TestParseRoundTrips(t *testing.T) {
	for _, class := range overlay.AllNodeClasses() {
		parsed, err := overlay.ParseNodeClass(class.String())
		require.NoError(t, err)
		assert.Equal(t, class, parsed)
	}
	_, err := overlay.ParseNodeClass("validator")
	require.Error(t, err)

	for _, kind := range overlay.AllMessageKinds() {
		parsed, err := overlay.ParseMessageKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
	_, err = overlay.ParseMessageKind("gossip")
	require.Error(t, err)

	for p := overlay.PrecedenceLowest; p <= overlay.PrecedenceHighest; p++ {
		parsed, err := overlay.ParsePrecedence(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	_, err = overlay.ParsePrecedence("urgent")
	require.Error(t, err)
}

func TestPrecedenceTotalOrder(t *testing.T) {
	require.True(t, overlay.PrecedenceLowest < overlay.PrecedenceLow)
	require.True(t, overlay.PrecedenceLow < overlay.PrecedenceMedium)
	require.True(t, overlay.PrecedenceMedium < overlay.PrecedenceHigh)
	require.True(t, overlay.PrecedenceHigh < overlay.PrecedenceHighest)
}

func TestOrigin(t *testing.T) {
	sender := overlay.OriginSender()
	require.False(t, sender.Forwarded())
	_, ok := sender.Source()
	require.False(t, ok)

	src := overlay.NewPeerID("192.168.1.7", 4000)
	fwd := overlay.OriginForward(src)
	require.True(t, fwd.Forwarded())
	got, ok := fwd.Source()
	require.True(t, ok)
	require.Equal(t, src, got)
}

func TestPeerIDParse(t *testing.T) {
	parsed, err := overlay.ParsePeerID("10.1.2.3:3000")
	require.NoError(t, err)
	require.Equal(t, overlay.NewPeerID("10.1.2.3", 3000), parsed)
	require.Equal(t, "10.1.2.3:3000", parsed.String())

	_, err = overlay.ParsePeerID("no-port")
	require.Error(t, err)
	_, err = overlay.ParsePeerID("host:99999")
	require.Error(t, err)
}

func TestMessageKindOrigin(t *testing.T) {
	assert.True(t, overlay.MsgTransaction.HasOrigin())
	assert.True(t, overlay.MsgMPC.HasOrigin())
	assert.False(t, overlay.MsgAnnounceBlockHeader.HasOrigin())
	assert.False(t, overlay.MsgRequestBlockHeaders.HasOrigin())
	assert.False(t, overlay.MsgRequestBlocks.HasOrigin())
}
