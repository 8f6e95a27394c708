package device

import "github.com/battmock/battmock/internal/battery"

type Device struct {
	ID string
	B  *battery.Battery
}

func New(id string, b *battery.Battery) *Device {
	return &Device{ID: id, B: b}
}
