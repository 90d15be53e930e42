package adapters

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nadasuara/server/domain/entities"
)

// MemoryDeviceRepository is an in-memory implementation of
// DeviceRepository. Suitable for production use as a simple storage
// backend when the device fleet is provisioned at startup.
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[string]*entities.Device // id -> device
	serials map[string]*entities.Device // serial_number -> device
}

// NewMemoryDeviceRepository creates a new in-memory device repository
func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{
		devices: make(map[string]*entities.Device),
		serials: make(map[string]*entities.Device),
	}
}

// Register adds a device with its authentication secret. Typically
// called at startup while provisioning the fleet.
func (m *MemoryDeviceRepository) Register(device *entities.Device) error {
	if device == nil {
		return errors.New("device cannot be nil")
	}
	if err := device.Validate(); err != nil {
		return err
	}
	if device.SecretKey == "" {
		return errors.New("secret key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.serials[device.SerialNumber]; exists {
		return errors.New("device with this serial number already exists")
	}

	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now()
	}

	deviceCopy := *device
	m.devices[device.ID] = &deviceCopy
	m.serials[device.SerialNumber] = &deviceCopy
	return nil
}

// ValidateDevice implements repositories.DeviceRepository
func (m *MemoryDeviceRepository) ValidateDevice(serialNumber, secret string) (*entities.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, exists := m.serials[serialNumber]
	if !exists {
		return nil, errors.New("device not found")
	}
	if device.SecretKey != secret {
		return nil, errors.New("invalid credentials")
	}

	// Return a copy to prevent external modifications
	deviceCopy := *device
	return &deviceCopy, nil
}

// GetByID implements repositories.DeviceRepository
func (m *MemoryDeviceRepository) GetByID(id string) (*entities.Device, error) {
	if id == "" {
		return nil, errors.New("device ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	device, exists := m.devices[id]
	if !exists {
		return nil, errors.New("device not found")
	}

	deviceCopy := *device
	return &deviceCopy, nil
}
