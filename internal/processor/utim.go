package processor

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/utim/internal/logging"
	"github.com/lanikai/utim/internal/srp"
)

var log = logging.DefaultLogger.WithTag("processor")

// ErrNoMasterKey is returned by NewUtim when constructed without a master
// key, mirroring the original's UtimInitializationError.
var ErrNoMasterKey = errors.New("processor: master key is required")

// Utim is the single stateful session object: SRP progress and the derived
// session key. Per the concurrency model, only the processing goroutine
// mutates it; its fields are additionally guarded by mu so a concurrent
// status reader could observe them safely without further changes.
type Utim struct {
	identity  []byte // hex-decoded utim_name, doubles as the SRP username
	masterKey []byte // SRP password

	mu            sync.RWMutex
	srpStep       *int
	srpIterations int
	sessionKey    []byte
	srpClient     *srp.User

	platformConfig map[string]string
}

// NewUtim decodes utimName (uppercase hex identity) and validates
// masterKey is non-empty.
func NewUtim(utimName string, masterKey []byte) (*Utim, error) {
	if len(masterKey) == 0 {
		return nil, ErrNoMasterKey
	}
	identity, err := hex.DecodeString(strings.ToUpper(utimName))
	if err != nil {
		return nil, errors.Wrap(err, "processor: utim name is not valid hex")
	}
	return &Utim{
		identity:      identity,
		masterKey:     masterKey,
		srpIterations: 10,
	}, nil
}

// SRPStep returns the current SRP step: nil (not started), 1 (hello sent),
// or 2 (check sent).
func (u *Utim) SRPStep() *int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.srpStep
}

func (u *Utim) SetSRPStep(step *int) {
	u.mu.Lock()
	u.srpStep = step
	u.mu.Unlock()
}

// SRPClient lazily creates the SRP user on first call and returns the same
// instance thereafter, matching the original's cache-once behavior — even
// across an SRP reset, which clears srpStep but not the client.
func (u *Utim) SRPClient() *srp.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.srpClient == nil {
		u.srpClient = srp.NewUser(u.identity, u.masterKey)
	}
	return u.srpClient
}

func (u *Utim) SessionKey() []byte {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.sessionKey
}

func (u *Utim) SetSessionKey(key []byte) {
	u.mu.Lock()
	u.sessionKey = key
	u.mu.Unlock()
}

func (u *Utim) SRPIterations() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.srpIterations
}

func (u *Utim) SetSRPIterations(n int) {
	u.mu.Lock()
	u.srpIterations = n
	u.mu.Unlock()
}

// ResetSRP clears srp_step and resets the retry counter, allowing a fresh
// NETWORK_READY to restart the handshake. The SRP client itself is left
// alone, matching the original's ERROR-worker behavior.
func (u *Utim) ResetSRP() {
	u.SetSRPStep(nil)
	u.SetSRPIterations(10)
}

func (u *Utim) SetPlatformConfig(cfg map[string]string) {
	u.mu.Lock()
	u.platformConfig = cfg
	u.mu.Unlock()
}

func (u *Utim) PlatformConfig() map[string]string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.platformConfig
}
