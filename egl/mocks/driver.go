// Package mocks provides testify mocks of the egl interfaces.
package mocks

import (
	"github.com/gilvbp/egl-wayland/egl"
	"github.com/stretchr/testify/mock"
)

// Driver is a mock egl.Driver. Return values must be given with their exact
// egl types, eg. Return(egl.Int(1), egl.Int(5), true) for Initialize.
type Driver struct {
	mock.Mock
}

var _ egl.Driver = (*Driver)(nil)

// NewDriver creates a Driver whose expectations are asserted at test cleanup.
func NewDriver(t interface {
	mock.TestingT
	Cleanup(func())
}) *Driver {
	m := &Driver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Driver) Version() (int, int) {
	ret := m.Called()
	return ret.Int(0), ret.Int(1)
}

func (m *Driver) SupportsDisplayReference() bool {
	return m.Called().Bool(0)
}

func (m *Driver) GetPlatformDisplay(platform egl.Enum, device egl.Device, attribs []egl.Attrib) egl.Display {
	return m.Called(platform, device, attribs).Get(0).(egl.Display)
}

func (m *Driver) Initialize(dpy egl.Display) (egl.Int, egl.Int, bool) {
	ret := m.Called(dpy)
	return ret.Get(0).(egl.Int), ret.Get(1).(egl.Int), ret.Bool(2)
}

func (m *Driver) Terminate(dpy egl.Display) bool {
	return m.Called(dpy).Bool(0)
}

func (m *Driver) QueryString(dpy egl.Display, name egl.Int) (string, bool) {
	ret := m.Called(dpy, name)
	return ret.String(0), ret.Bool(1)
}

func (m *Driver) QueryDeviceString(dev egl.Device, name egl.Int) (string, bool) {
	ret := m.Called(dev, name)
	return ret.String(0), ret.Bool(1)
}

func (m *Driver) QueryDevices() ([]egl.Device, bool) {
	ret := m.Called()
	devs, _ := ret.Get(0).([]egl.Device)
	return devs, ret.Bool(1)
}

func (m *Driver) QueryDisplayAttrib(dpy egl.Display, name egl.Int) (egl.Attrib, bool) {
	ret := m.Called(dpy, name)
	return ret.Get(0).(egl.Attrib), ret.Bool(1)
}

func (m *Driver) ChooseConfig(dpy egl.Display, attribs []egl.Int, configSize int) ([]egl.Config, bool) {
	ret := m.Called(dpy, attribs, configSize)
	configs, _ := ret.Get(0).([]egl.Config)
	return configs, ret.Bool(1)
}

func (m *Driver) GetConfigAttrib(dpy egl.Display, config egl.Config, attribute egl.Int) (egl.Int, bool) {
	ret := m.Called(dpy, config, attribute)
	return ret.Get(0).(egl.Int), ret.Bool(1)
}

func (m *Driver) CreateSync(dpy egl.Display, typ egl.Enum, attribs []egl.Attrib) egl.Sync {
	return m.Called(dpy, typ, attribs).Get(0).(egl.Sync)
}

func (m *Driver) DestroySync(dpy egl.Display, sync egl.Sync) bool {
	return m.Called(dpy, sync).Bool(0)
}

func (m *Driver) SwapInterval(dpy egl.Display, interval egl.Int) bool {
	return m.Called(dpy, interval).Bool(0)
}

func (m *Driver) GetError() egl.Int {
	return m.Called().Get(0).(egl.Int)
}
