package main

import "github.com/virtualpytest/core/internal/device"

// ControllerFactory builds the typed controller set for one device
// selection (spec §6 "Controller interface (in-process)"). Real device
// bindings (ADB, IR blaster, HDMI capture, web driver, desktop
// automation) are host/hardware specific and, like the R2/Supabase/OCR/
// speech-recognition/compression collaborators named in spec §1, are
// treated as external to this core: it depends only on the narrow
// device.ActionController/VerificationController/AVController/
// PowerController capability interfaces, never on a concrete driver.
//
// DefaultControllerFactory wires the no-op stand-ins in internal/device
// so a vptcore process can run its full pipeline for local development
// and smoke testing without any device attached. A deployment with real
// hardware replaces this var (or constructs devicehandle.Config
// directly) with a factory that dials its actual controller backends.
type ControllerFactory func(hostName, deviceModel, deviceName string) *device.Controllers

var DefaultControllerFactory ControllerFactory = func(hostName, deviceModel, deviceName string) *device.Controllers {
	return device.NewNoopControllers()
}
