package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daedaluz/cinch/usbr"
)

func TestResetPanicsWithMatchingType(t *testing.T) {
	r := NewReset()
	req := usbr.NewRequest(usbr.DeviceConnect, 1)

	defer func() {
		rec := recover()
		if assert.NotNil(t, rec) {
			rerr, ok := rec.(*ResetError)
			if assert.True(t, ok, "panic value should be a *ResetError") {
				assert.Equal(t, usbr.DeviceConnect, rerr.Type)
				assert.Contains(t, rerr.Error(), "DeviceConnect")
			}
		}
	}()

	r.HandleConnect(usbr.SourceRed, req)
}

func TestResetImplementsHandlers(t *testing.T) {
	var _ usbr.Handlers = NewReset()
}
