package repositories

import "github.com/nadasuara/server/domain/entities"

// DeviceRepository defines data access methods for devices.
type DeviceRepository interface {
	// ValidateDevice validates device credentials for authentication.
	ValidateDevice(serialNumber, secret string) (*entities.Device, error)
	// GetByID returns a device by its identifier.
	GetByID(id string) (*entities.Device, error)
}
