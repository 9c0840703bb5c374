package camera

// GenICam SFNC feature names used by acquisition control
const (
	FeatureAcquisitionMode            = "AcquisitionMode"
	FeatureAcquisitionBurstFrameCount = "AcquisitionBurstFrameCount"
	FeatureTriggerMode                = "TriggerMode"
	FeatureTriggerSelector            = "TriggerSelector"
	FeatureTriggerSource              = "TriggerSource"
	FeatureWidth                      = "Width"
	FeatureHeight                     = "Height"
	FeaturePixelFormat                = "PixelFormat"
	FeatureDeviceModelName            = "DeviceModelName"
	FeatureDeviceSerialNumber         = "DeviceSerialNumber"
)

// enumeration entries
const (
	AcquisitionModeContinuous  = "Continuous"
	AcquisitionModeSingleFrame = "SingleFrame"
	AcquisitionModeMultiFrame  = "MultiFrame"

	TriggerModeOn  = "On"
	TriggerModeOff = "Off"

	TriggerFrameStart      = "FrameStart"
	TriggerFrameBurstStart = "FrameBurstStart"

	TriggerSourceSoftware = "Software"
)
