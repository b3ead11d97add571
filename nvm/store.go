// Package nvm models the persistence surface: the fields a real device
// checkpoints to non-volatile storage so a reboot does not lose Join
// state, frame counters, or the negotiated channel/DR plan.
package nvm

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/loraedge/lr1mac/lorawan"
)

// State is the full set of fields checkpointed across a reboot.
type State struct {
	DevNonce  lorawan.DevNonce `json:"devNonce"`
	Joined    bool             `json:"joined"`
	NwkSKey   lorawan.AES128Key `json:"nwkSKey"`
	AppSKey   lorawan.AES128Key `json:"appSKey"`
	DevAddr   lorawan.DevAddr  `json:"devAddr"`
	FCntUp    uint32           `json:"fCntUp"`
	FCntDown  uint32           `json:"fCntDown"`

	EnabledChannels []int `json:"enabledChannels"`
	TXDataRate      int   `json:"txDataRate"`

	RX1DROffset int    `json:"rx1DrOffset"`
	RX2DataRate int    `json:"rx2DataRate"`
	RX2Freq     int    `json:"rx2Freq"`
	RXDelay     uint8  `json:"rxDelay"`
	MaxEIRP     float32 `json:"maxEirp"`
	UplinkDwellTime   bool `json:"uplinkDwellTime"`
	DownlinkDwellTime bool `json:"downlinkDwellTime"`
	NbTrans     uint8  `json:"nbTrans"`
}

// ErrNotFound is returned by Load when no state has been saved yet.
var ErrNotFound = errors.New("nvm: no state stored")

// Store is the persistence surface the MAC engine checkpoints through.
// Implementations MUST make Save atomic enough that a crash mid-write
// cannot corrupt the previously committed state.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// MemStore is an in-memory Store intended for tests and for simulation
// runs that don't need a reboot to survive. It does no locking of its own,
// so concurrent Load/Save calls are not synchronized.
type MemStore struct {
	state *State
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load implements Store.
func (s *MemStore) Load() (State, error) {
	if s.state == nil {
		return State{}, ErrNotFound
	}
	return *s.state, nil
}

// Save implements Store.
func (s *MemStore) Save(st State) error {
	cp := st
	s.state = &cp
	return nil
}

// FileStore is a JSON-encoded, file-backed Store used by cmd/lr1mac-sim so
// a simulated reboot actually reloads the last checkpoint from disk.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (s *FileStore) Load() (State, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, err
	}

	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Save implements Store. It writes to a temporary file and renames over
// the target so a crash mid-write cannot leave a half-written checkpoint.
func (s *FileStore) Save(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
