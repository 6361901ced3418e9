package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// TrustedDevice is one entry in trusted_devices.json.
type TrustedDevice struct {
	Name           string    `json:"name"`
	FirstConnected time.Time `json:"first_connected"`
	LastConnected  time.Time `json:"last_connected"`
}

// TrustedDevices is the in-memory, disk-backed record of devices that have
// previously been approved. Loss of this file is recoverable: the owning
// device simply goes through approval again.
type TrustedDevices struct {
	mu      sync.RWMutex
	path    string
	devices map[string]TrustedDevice
}

// LoadTrustedDevices reads trusted_devices.json from the default data
// directory. A missing file is not an error — it starts out empty.
func LoadTrustedDevices() (*TrustedDevices, error) {
	return LoadTrustedDevicesFrom(TrustedDevicesPath())
}

// LoadTrustedDevicesFrom reads the trusted devices document at path.
func LoadTrustedDevicesFrom(path string) (*TrustedDevices, error) {
	td := &TrustedDevices{path: path, devices: make(map[string]TrustedDevice)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return td, nil
		}
		return nil, fmt.Errorf("config: read trusted_devices.json: %w", err)
	}
	if len(data) == 0 {
		return td, nil
	}
	if err := json.Unmarshal(data, &td.devices); err != nil {
		return nil, fmt.Errorf("config: parse trusted_devices.json: %w", err)
	}
	return td, nil
}

// IsTrusted reports whether deviceID has previously been approved.
func (t *TrustedDevices) IsTrusted(deviceID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.devices[deviceID]
	return ok
}

// Remember records deviceID as trusted, updating last_connected (and
// first_connected if this is the first time), then persists the document.
// A persistence failure is logged by the caller; the in-memory record is
// kept either way so the running process stays consistent for its lifetime.
func (t *TrustedDevices) Remember(deviceID, name string) error {
	now := time.Now().UTC()

	t.mu.Lock()
	entry, existed := t.devices[deviceID]
	if !existed {
		entry.FirstConnected = now
	}
	entry.Name = name
	entry.LastConnected = now
	t.devices[deviceID] = entry
	snapshot := make(map[string]TrustedDevice, len(t.devices))
	for k, v := range t.devices {
		snapshot[k] = v
	}
	t.mu.Unlock()

	return t.persist(snapshot)
}

func (t *TrustedDevices) persist(snapshot map[string]TrustedDevice) error {
	dir := filepath.Dir(t.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("config: create trusted devices dir: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("json")
	for id, dev := range snapshot {
		v.Set(id, dev)
	}
	if err := v.WriteConfigAs(t.path); err != nil {
		return fmt.Errorf("config: write trusted_devices.json: %w", err)
	}
	return os.Chmod(t.path, 0600)
}
