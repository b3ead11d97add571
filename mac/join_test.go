package mac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loraedge/lr1mac/lorawan"
)

func TestBuildJoinRequestProducesValidMIC(t *testing.T) {
	assert := require.New(t)
	e := newTestEngine(t)

	var appKey lorawan.AES128Key
	for i := range appKey {
		appKey[i] = byte(i + 1)
	}
	e.identity = DeviceIdentity{
		JoinEUI: lorawan.EUI64{1, 2, 3, 4, 5, 6, 7, 8},
		DevEUI:  lorawan.EUI64{8, 7, 6, 5, 4, 3, 2, 1},
		AppKey:  appKey,
	}

	assert.NoError(e.BuildJoinRequest())
	assert.NotEmpty(e.pending.built)
	assert.True(e.pending.isJoin)
	assert.Equal(TxOn, e.state)
	assert.Equal(1, e.joinAttempts)

	var phy lorawan.PHYPayload
	assert.NoError(phy.UnmarshalBinary(e.pending.built))
	assert.Equal(lorawan.JoinRequest, phy.MHDR.MType)

	ok, err := phy.ValidateUplinkJoinMIC(appKey)
	assert.NoError(err)
	assert.True(ok)

	jr, ok := phy.MACPayload.(*lorawan.JoinRequestPayload)
	assert.True(ok)
	assert.Equal(e.identity.JoinEUI, jr.JoinEUI)
	assert.Equal(e.identity.DevEUI, jr.DevEUI)
}

func TestNextJoinBackoffFirstHourIsTenthOfAirtime(t *testing.T) {
	assert := require.New(t)
	e := newTestEngine(t)
	e.firstJoinAtMs = 0

	fast, err := e.NextJoinBackoff(0)
	assert.NoError(err)

	far, err := e.NextJoinBackoff(2 * 3600_000)
	assert.NoError(err)

	// the >1h tier backs off strictly longer than the <1h tier for the
	// same nominal airtime.
	assert.Greater(far-2*3600_000, fast)
}

func TestNextJoinBackoffTierBoundaries(t *testing.T) {
	assert := require.New(t)
	e := newTestEngine(t)
	e.firstJoinAtMs = 0

	within1h, err := e.NextJoinBackoff(1000)
	assert.NoError(err)
	delay1 := within1h - 1000

	within11h, err := e.NextJoinBackoff(2 * 3600_000)
	assert.NoError(err)
	delay2 := within11h - 2*3600_000

	beyond11h, err := e.NextJoinBackoff(12 * 3600_000)
	assert.NoError(err)
	delay3 := beyond11h - 12*3600_000

	assert.Less(delay1, delay2)
	assert.Less(delay2, delay3)
	assert.Equal(delay2*10, delay3)
}
