package entities

import (
	"errors"
	"time"
)

// Device represents a registered client device allowed to open streaming
// sessions.
type Device struct {
	ID           string    `json:"id" bson:"_id"`
	SerialNumber string    `json:"serial_number" bson:"serial_number"`
	SecretKey    string    `json:"-" bson:"secret_key"`
	Model        string    `json:"model" bson:"model"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// Validate validates the device data.
func (d *Device) Validate() error {
	if d.SerialNumber == "" {
		return errors.New("serial number is required")
	}
	return nil
}
