package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_ABS = 0x03

	SYN_REPORT = 0x00

	BTN_TOUCH = 0x14a

	// Relative axis codes
	REL_WHEEL        = 0x08
	REL_WHEEL_HI_RES = 0x0b

	// Absolute axis codes
	ABS_Y             = 0x01
	ABS_MT_POSITION_Y = 0x36
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
)

// hiResUnitsPerNotch is the REL_WHEEL_HI_RES resolution: 120 units per detent.
const hiResUnitsPerNotch = 120

// Scroll physics defaults
const (
	defaultWheelMultiplier = 0.000003 // velocity per wheel deltaY pixel
	defaultTouchMultiplier = 0.00003  // velocity per touch pixel
	defaultVelocityDecay   = 0.95     // per-tick momentum retention
	defaultSmoothing       = 0.1      // displayed -> target lerp factor
	defaultMinVelocity     = 0.001    // below this the scene is idle
	defaultWrapThreshold   = 0.05     // exposed, not used by the physics step
)

// Frame loop and input defaults
const (
	defaultUpdateHz         = 60    // ticks per second (one tick per rendered frame)
	defaultWheelNotchDelta  = 100.0 // deltaY pixels per wheel detent, matches common browsers
	defaultTerminalNotchDY  = 100.0 // deltaY pixels per terminal wheel event
	defaultEventQueueSize   = 256
	defaultBroadcastBufSize = 128

	// scrollBroadcastDecimals is the precision of scroll values in WS broadcasts.
	// Internal state keeps full precision.
	scrollBroadcastDecimals = 4
)

// Scene defaults
const (
	defaultCameraClip = "CameraAction.001"
	defaultLightClip  = "LightAction.001"
	defaultCameraNode = "Camera"
	defaultLightNode  = "Light"
)
