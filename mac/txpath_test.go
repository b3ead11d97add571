package mac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loraedge/lr1mac/lorawan"
)

func TestBuildAndEncryptProduceValidatableFrame(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)
	e.session.DevAddr = lorawan.DevAddr{1, 2, 3, 4}
	e.session.NwkSKey = lorawan.AES128Key{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	e.session.AppSKey = lorawan.AES128Key{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}
	e.session.FCntUp = 7

	e.pending = pendingUplink{fPort: 1, appPayload: []byte{9, 9, 9}}

	assert.NoError(e.Build())
	assert.NoError(e.Encrypt())
	assert.NotEmpty(e.pending.built)

	var phy lorawan.PHYPayload
	assert.NoError(phy.UnmarshalBinary(e.pending.built))

	ok, err := phy.ValidateUplinkDataMIC(lorawan.LoRaWAN1_0, 0, 0, 0, e.session.NwkSKey, e.session.NwkSKey)
	assert.NoError(err)
	assert.True(ok)

	assert.NoError(phy.DecryptFRMPayload(e.session.AppSKey))
	macPL, ok := phy.MACPayload.(*lorawan.MACPayload)
	assert.True(ok)
	assert.Equal(uint32(7), macPL.FHDR.FCnt)

	dp, ok := macPL.FRMPayload[0].(*lorawan.DataPayload)
	assert.True(ok)
	assert.Equal([]byte{9, 9, 9}, dp.Bytes)
}

func TestBuildSetsConfirmedMType(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)
	e.pending = pendingUplink{confirmed: true, fPort: 1}

	assert.NoError(e.Build())
	assert.Equal(lorawan.ConfirmedDataUp, e.pending.mhdr.MType)
}

func TestBuildTruncatesFOptsAtFifteenBytes(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)

	// Each LinkADRAns marshals to 2 bytes (1 CID + 1 payload byte);
	// queueSticky collapses same-CID entries, so stack 8 distinct
	// transient answers (16 bytes) to force the 15-byte FOpts cap.
	for i := 0; i < 8; i++ {
		e.session.transientAnswers = append(e.session.transientAnswers, lorawan.MACCommand{
			CID:     lorawan.LinkADRAns,
			Payload: &lorawan.LinkADRAnsPayload{ChannelMaskACK: true, DataRateACK: true, PowerACK: true},
		})
	}

	e.pending = pendingUplink{fPort: 1}
	assert.NoError(e.Build())
	assert.Equal(14, len(e.pending.fopts)) // 7 commands fit, the 8th would exceed the 15-byte cap
}
