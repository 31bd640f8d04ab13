package provider

import (
	"context"
	"testing"

	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestFactory_ForDevice_NoTarget(t *testing.T) {
	f := NewFactory(config.ADBConfig{}, quietLogger())

	p, err := f.ForDevice(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.Nil(t, p)
}

func TestFactory_ForInventory(t *testing.T) {
	f := NewFactory(config.ADBConfig{Target: "emulator-5554"}, quietLogger())

	p := f.ForInventory("testdata/inventory.json")
	assert.IsType(t, &FileProvider{}, p)
}
