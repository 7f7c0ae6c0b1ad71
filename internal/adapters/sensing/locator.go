package sensing

import (
	"sync"
	"time"

	"github.com/okian/myplaces/internal/domain/model"
)

// Fix is the last known device position.
type Fix struct {
	Position model.Point
	SpeedMps float64 // negative when the device did not report a speed
	At       time.Time
}

// DeviceLocator holds the last fix reported by the device.
type DeviceLocator struct {
	mu  sync.RWMutex
	fix *Fix
}

// NewDeviceLocator creates a locator without a fix.
func NewDeviceLocator() *DeviceLocator {
	return &DeviceLocator{}
}

// Update stores a new fix.
func (l *DeviceLocator) Update(f Fix) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fix = &f
}

// Clear forgets the fix, e.g. when location permission is revoked.
func (l *DeviceLocator) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fix = nil
}

// Fix returns the last fix.
func (l *DeviceLocator) Fix() (Fix, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.fix == nil {
		return Fix{}, false
	}
	return *l.fix, true
}
