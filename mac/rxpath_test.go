package mac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loraedge/lr1mac/lorawan"
)

func TestDecodeFrameRejectsUplinkMType(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)

	phy := lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: lorawan.UnconfirmedDataUp, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.MACPayload{
			FHDR: lorawan.FHDR{DevAddr: e.session.DevAddr},
		},
	}
	b, err := phy.MarshalBinary()
	assert.NoError(err)

	result, err := e.DecodeFrame(b)
	assert.Error(err)
	assert.Equal(DecodeNone, result)
}

func buildDataDownFrame(t *testing.T, nwkSKey lorawan.AES128Key, devAddr lorawan.DevAddr, fcnt uint32, confirmed bool) []byte {
	t.Helper()
	assert := require.New(t)

	mtype := lorawan.UnconfirmedDataDown
	if confirmed {
		mtype = lorawan.ConfirmedDataDown
	}
	fport := uint8(5)
	phy := lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: mtype, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.MACPayload{
			FHDR: lorawan.FHDR{
				DevAddr: devAddr,
				FCnt:    fcnt,
			},
			FPort:      &fport,
			FRMPayload: []lorawan.Payload{&lorawan.DataPayload{Bytes: []byte{1, 2, 3}}},
		},
	}
	assert.NoError(phy.EncryptFRMPayload(nwkSKey))
	assert.NoError(phy.SetDownlinkDataMIC(lorawan.LoRaWAN1_0, 0, nwkSKey))

	b, err := phy.MarshalBinary()
	assert.NoError(err)
	return b
}

func TestDecodeFrameAcceptsFirstDataDownlink(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)
	e.session.DevAddr = lorawan.DevAddr{1, 2, 3, 4}
	e.session.NwkSKey = lorawan.AES128Key{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	raw := buildDataDownFrame(t, e.session.NwkSKey, e.session.DevAddr, 0, false)

	result, err := e.DecodeFrame(raw)
	assert.NoError(err)
	assert.Equal(DecodeNwkRx, result)
	assert.Equal(uint32(0), e.session.FCntDown)
}

func TestDecodeFrameRejectsDevAddrMismatch(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)
	e.session.DevAddr = lorawan.DevAddr{1, 2, 3, 4}
	e.session.NwkSKey = lorawan.AES128Key{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	raw := buildDataDownFrame(t, e.session.NwkSKey, lorawan.DevAddr{9, 9, 9, 9}, 0, false)

	result, err := e.DecodeFrame(raw)
	assert.Error(err)
	assert.Equal(DecodeNone, result)
}

func TestDecodeFrameRejectsReplayedFCnt(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)
	e.session.DevAddr = lorawan.DevAddr{1, 2, 3, 4}
	e.session.NwkSKey = lorawan.AES128Key{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	e.session.FCntDown = 100

	raw := buildDataDownFrame(t, e.session.NwkSKey, e.session.DevAddr, 50, false)

	result, err := e.DecodeFrame(raw)
	assert.Error(err)
	assert.Equal(DecodeNone, result)
	assert.Equal(uint32(100), e.session.FCntDown)
}

func TestDecodeFrameRejectsBadMIC(t *testing.T) {
	assert := require.New(t)
	e := newJoinedTestEngine(t)
	e.session.DevAddr = lorawan.DevAddr{1, 2, 3, 4}
	e.session.NwkSKey = lorawan.AES128Key{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	raw := buildDataDownFrame(t, e.session.NwkSKey, e.session.DevAddr, 0, false)
	wrongKey := lorawan.AES128Key{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}
	e.session.NwkSKey = wrongKey

	result, err := e.DecodeFrame(raw)
	assert.Error(err)
	assert.Equal(DecodeNone, result)
}

func TestDecodeFrameJoinAcceptDerivesSessionAndAdvancesDevNonce(t *testing.T) {
	assert := require.New(t)
	e := newTestEngine(t)

	var appKey lorawan.AES128Key
	for i := range appKey {
		appKey[i] = byte(i)
	}
	e.identity = DeviceIdentity{
		JoinEUI:  lorawan.EUI64{},
		DevEUI:   lorawan.EUI64{1},
		AppKey:   appKey,
		DevNonce: lorawan.DevNonce(0),
	}

	phy := lorawan.PHYPayload{
		MHDR: lorawan.MHDR{MType: lorawan.JoinAccept, Major: lorawan.LoRaWANR1},
		MACPayload: &lorawan.JoinAcceptPayload{
			JoinNonce: lorawan.JoinNonce(13044567),
			HomeNetID: lorawan.NetID{34, 17, 1},
			DevAddr:   lorawan.DevAddr{2, 3, 25, 128},
			RXDelay:   0,
		},
	}
	assert.NoError(phy.SetDownlinkJoinMIC(lorawan.JoinRequestType, e.identity.JoinEUI, e.identity.DevNonce, appKey))
	assert.NoError(phy.EncryptJoinAcceptPayload(appKey))

	raw, err := phy.MarshalBinary()
	assert.NoError(err)

	result, err := e.DecodeFrame(raw)
	assert.NoError(err)
	assert.Equal(DecodeJoinAccept, result)

	assert.True(e.joined)
	assert.NotNil(e.session)
	assert.Equal(lorawan.DevAddr{2, 3, 25, 128}, e.session.DevAddr)
	assert.Equal(uint8(1), e.session.RxDelay) // RxDelay of 0 clamps to 1
	assert.Equal(lorawan.DevNonce(1), e.identity.DevNonce)
}
