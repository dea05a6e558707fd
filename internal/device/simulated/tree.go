package simulated

import "github.com/cjeanneret/boothcam/internal/logic/settings"

// placeholderJPEG is a minimal JPEG header and trailer.
var placeholderJPEG = []byte{
	0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0xFF, 0xD9,
}

// DefaultTree returns a settings tree shaped like a PTP camera's.
// A fresh tree is built on every call.
func DefaultTree() *settings.Node {
	return settings.Section("main", "Camera and Driver Configuration",
		settings.Section("actions", "Camera Actions",
			settings.NewToggle("autofocusdrive", "Drive Nikon DSLR Autofocus", false),
			settings.NewToggle("viewfinder", "Nikon Viewfinder", false),
		),
		settings.Section("settings", "Camera Settings",
			settings.NewDate("datetime", "Camera Date and Time", 1735689600),
			settings.NewText("artist", "Artist", "boothcam"),
		),
		settings.Section("imgsettings", "Image Settings",
			settings.NewRadio("imageformat", "Image Format", "JPEG Fine",
				"JPEG Basic", "JPEG Normal", "JPEG Fine", "RAW", "RAW + JPEG Fine"),
			settings.NewRadio("imagesize", "Image Size", "4288x2848", "4288x2848", "3216x2136", "2144x1424"),
			settings.NewRadio("iso", "ISO Speed", "400", "100", "200", "400", "800", "1600", "3200"),
			settings.NewRadio("whitebalance", "WhiteBalance", "Automatic",
				"Automatic", "Daylight", "Fluorescent", "Tungsten", "Flash", "Cloudy", "Shade"),
		),
		settings.Section("capturesettings", "Capture Settings",
			settings.NewRange("exposurecompensation", "Exposure Compensation", 0, -5, 5, 0.333),
			settings.NewRadio("flashmode", "Flash Mode", "Auto", "Auto", "Fill flash", "Off"),
			settings.NewRadio("aperture", "Aperture", "5.6", "3.5", "4", "5.6", "8", "11", "16"),
			settings.NewRadio("focusmode", "Focus Mode", "AF-S", "Manual", "AF-S", "AF-C", "AF-A"),
			settings.NewRadio("shutterspeed", "Shutter Speed", "1/125",
				"1/30", "1/60", "1/125", "1/250", "1/500", "1/1000"),
			settings.NewMenu("drivemode", "Drive Mode", "Single Shot", "Single Shot", "Continuous", "Timer"),
		),
	)
}
