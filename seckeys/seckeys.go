// Package seckeys is the narrow cryptographic surface the MAC engine
// drives directly, as opposed to the full PHYPayload-shaped API of
// lorawan. It exists because the engine often needs a MIC or a
// ciphertext in isolation, ahead of having assembled a full frame --
// session-key derivation in particular has no home in lorawan at all.
//
// Every function here is grounded on the corresponding PHYPayload method
// body in lorawan/phypayload.go: the same cmac.New/aes.NewCipher calls,
// reduced to operate on raw byte slices instead of a populated
// PHYPayload.
package seckeys

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/jacobsa/crypto/cmac"

	"github.com/loraedge/lr1mac/lorawan"
)

// Direction distinguishes uplink from downlink for the block-counter
// construction EncryptFRMPayload/ComputeDataMIC both depend on.
type Direction uint8

// Supported directions.
const (
	Uplink Direction = iota
	Downlink
)

// ComputeDataMIC computes the 4-byte MIC of a LoRaWAN 1.0 data frame
// (MHDR || FHDR || FPort || FRMPayload), grounded on
// PHYPayload.calculateUplinkDataMIC's macVersion==LoRaWAN1_0 path, which
// reduces to a single cmacF[0:4] with no confFCnt/txDR/txCh dependency.
func ComputeDataMIC(key lorawan.AES128Key, msg []byte, dir Direction, devAddr lorawan.DevAddr, fcnt32 uint32) ([4]byte, error) {
	addrB, err := devAddr.MarshalBinary()
	if err != nil {
		return [4]byte{}, err
	}

	b0 := make([]byte, 16)
	b0[0] = 0x49
	b0[5] = byte(dir)
	copy(b0[6:10], addrB)
	binary.LittleEndian.PutUint32(b0[10:14], fcnt32)
	b0[14] = 0x00
	b0[15] = byte(len(msg))

	hash, err := cmac.New(key[:])
	if err != nil {
		return [4]byte{}, err
	}
	if _, err := hash.Write(b0); err != nil {
		return [4]byte{}, err
	}
	if _, err := hash.Write(msg); err != nil {
		return [4]byte{}, err
	}

	var mic [4]byte
	copy(mic[:], hash.Sum([]byte{})[0:4])
	return mic, nil
}

// EncryptFRMPayload applies the LoRaWAN AES-CTR-style FRMPayload cipher,
// grounded on the package-level lorawan.EncryptFRMPayload function (itself
// reachable from PHYPayload.EncryptFRMPayload). The same transform both
// encrypts and decrypts.
func EncryptFRMPayload(key lorawan.AES128Key, dir Direction, devAddr lorawan.DevAddr, fcnt32 uint32, data []byte) ([]byte, error) {
	return lorawan.EncryptFRMPayload(key, dir == Uplink, devAddr, fcnt32, data)
}

// ComputeJoinRequestMIC computes the MIC over a join-request's
// MHDR||JoinEUI||DevEUI||DevNonce, grounded on
// PHYPayload.calculateUplinkJoinMIC.
func ComputeJoinRequestMIC(appKey lorawan.AES128Key, joinReqBytes []byte) ([4]byte, error) {
	hash, err := cmac.New(appKey[:])
	if err != nil {
		return [4]byte{}, err
	}
	if _, err := hash.Write(joinReqBytes); err != nil {
		return [4]byte{}, err
	}

	var mic [4]byte
	copy(mic[:], hash.Sum([]byte{})[0:4])
	return mic, nil
}

// DeriveSessionKeys computes NwkSKey and AppSKey from a LoRaWAN 1.0
// join-accept's AppNonce/NetID/DevNonce, following the construction
// original_source's key-derivation routine performs: AES-encrypt a
// 16-byte block of 0x01 (NwkSKey) or 0x02 (AppSKey) followed by
// AppNonce||NetID||DevNonce, zero-padded to a full block.
func DeriveSessionKeys(appKey lorawan.AES128Key, appNonce lorawan.JoinNonce, netID lorawan.NetID, devNonce lorawan.DevNonce) (nwkSKey, appSKey lorawan.AES128Key, err error) {
	block, err := aes.NewCipher(appKey[:])
	if err != nil {
		return nwkSKey, appSKey, err
	}

	appNonceB, err := appNonce.MarshalBinary()
	if err != nil {
		return nwkSKey, appSKey, err
	}
	netIDB, err := netID.MarshalBinary()
	if err != nil {
		return nwkSKey, appSKey, err
	}
	devNonceB, err := devNonce.MarshalBinary()
	if err != nil {
		return nwkSKey, appSKey, err
	}

	buildBlock := func(typeByte byte) []byte {
		b := make([]byte, 16)
		b[0] = typeByte
		copy(b[1:4], appNonceB)
		copy(b[4:7], netIDB)
		copy(b[7:9], devNonceB)
		return b
	}

	block.Encrypt(nwkSKey[:], buildBlock(0x01))
	block.Encrypt(appSKey[:], buildBlock(0x02))
	return nwkSKey, appSKey, nil
}

