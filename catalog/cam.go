package catalog

// AreaDetectorDocs documents the camera records shared by all areaDetector drivers.
var AreaDetectorDocs = NewDocSource("areaDetectorDoc", map[string]string{
	"ArrayCounter":      "Counter that increments by 1 each time an array is acquired. Can be reset by writing a value to it.",
	"ArrayRate_RBV":     "Rate at which arrays are being acquired, computed in the database.",
	"ArrayCallbacks":    "Controls whether callbacks are performed when an array is acquired.",
	"NDAttributesFile":  "The name of an XML file defining the NDAttributes to be added to each array.",
	"PortName_RBV":      "asyn port name of this driver instance.",
	"Manufacturer_RBV":  "Detector manufacturer name.",
	"Model_RBV":         "Detector model name.",
	"Acquire":           "Start (1) or stop (0) image acquisition.",
	"AcquireTime":       "Exposure time in seconds.",
	"AcquirePeriod":     "Exposure period between images in seconds.",
	"BinX":              "Binning in the X direction.",
	"BinY":              "Binning in the Y direction.",
	"MinX":              "First pixel to read in the X direction.",
	"MinY":              "First pixel to read in the Y direction.",
	"SizeX":             "Number of pixels to read in the X direction.",
	"SizeY":             "Number of pixels to read in the Y direction.",
	"ReverseX":          "Reverse the image in the X direction.",
	"ReverseY":          "Reverse the image in the Y direction.",
	"MaxSizeX_RBV":      "Detector size in the X direction.",
	"MaxSizeY_RBV":      "Detector size in the Y direction.",
	"ArraySizeX":        "Size of the array data in the X direction.",
	"ArraySizeY":        "Size of the array data in the Y direction.",
	"ArraySizeZ":        "Size of the array data in the Z direction.",
	"ArraySize_RBV":     "Total size of the array data in bytes.",
	"DataType":          "Data type of the array: Int8, UInt8, Int16, UInt16, Int32, UInt32, Float32, Float64.",
	"ColorMode":         "Color mode of the array: Mono, Bayer, RGB1, RGB2, RGB3, YUV444, YUV422, YUV411.",
	"Gain":              "Detector gain.",
	"ImageMode":         "Image mode: Single, Multiple or Continuous.",
	"TriggerMode":       "Trigger mode, detector specific. Internal and External are the most common.",
	"FrameType":         "Frame type: Normal, Background, FlatField or DoubleCorrelation.",
	"NumExposures":      "Number of exposures per image to acquire.",
	"NumImages":         "Number of images to acquire in Multiple mode.",
	"NumImagesCounter":  "Number of images acquired in the current acquisition sequence.",
	"DetectorState_RBV": "Detector state: Idle, Acquire, Readout, Correct, Saving, Aborting, Error, Waiting.",
	"StatusMessage_RBV": "Status message string from the driver.",
	"TimeRemaining_RBV": "Time remaining for the current image.",
	"Temperature":       "Detector temperature set-point.",
	"TemperatureActual": "Actual detector temperature.",
	"ShutterMode":       "Shutter mode: None, EPICS or Detector output.",
	"ShutterControl":    "Open (1) or close (0) the shutter.",
	"ShutterOpenDelay":  "Time required for the shutter to actually open.",
	"ShutterCloseDelay": "Time required for the shutter to actually close.",
	"ShutterStatus_RBV": "Status of the detector-controlled shutter.",
	"ReadStatus":        "Force a read of the detector status.",
	"PoolMaxMem":        "Maximum memory the NDArray pool may allocate.",
	"PoolUsedMem":       "Memory currently used by the NDArray pool.",
})

// CamBase returns the catalog of the camera records shared by all areaDetector drivers.
func CamBase() *Catalog {
	c := New("cam", AreaDetectorDocs)

	mustAdd(c,
		Entry{Attr: "array_counter", Suffix: "ArrayCounter", Kind: KindWithRBV},
		Entry{Attr: "array_rate", Suffix: "ArrayRate_RBV", Kind: KindReadOnly},
		Entry{Attr: "asyn_io", Suffix: "AsynIO"},

		Entry{Attr: "nd_attributes_file", Suffix: "NDAttributesFile", String: true},
		Entry{Attr: "pool_alloc_buffers", Suffix: "PoolAllocBuffers", Kind: KindReadOnly},
		Entry{Attr: "pool_free_buffers", Suffix: "PoolFreeBuffers", Kind: KindReadOnly},
		Entry{Attr: "pool_max_buffers", Suffix: "PoolMaxBuffers", Kind: KindReadOnly},
		Entry{Attr: "pool_max_mem", Suffix: "PoolMaxMem", Kind: KindReadOnly},
		Entry{Attr: "pool_used_buffers", Suffix: "PoolUsedBuffers", Kind: KindReadOnly},
		Entry{Attr: "pool_used_mem", Suffix: "PoolUsedMem", Kind: KindReadOnly},
		Entry{Attr: "port_name", Suffix: "PortName_RBV", Kind: KindReadOnly, String: true},

		Entry{Attr: "acquire", Suffix: "Acquire", Kind: KindWithRBV},
		Entry{Attr: "acquire_period", Suffix: "AcquirePeriod", Kind: KindWithRBV},
		Entry{Attr: "acquire_time", Suffix: "AcquireTime", Kind: KindWithRBV},
		Entry{Attr: "array_callbacks", Suffix: "ArrayCallbacks", Kind: KindWithRBV},
	)

	mustGroup(c, NewGroup("array_size", "Size of the array in the XYZ dimensions", KindReadOnly,
		[2]string{"array_size_x", "ArraySizeX_RBV"},
		[2]string{"array_size_y", "ArraySizeY_RBV"},
		[2]string{"array_size_z", "ArraySizeZ_RBV"},
	))

	mustAdd(c,
		Entry{Attr: "array_size_bytes", Suffix: "ArraySize_RBV", Kind: KindReadOnly},
		Entry{Attr: "bin_x", Suffix: "BinX", Kind: KindWithRBV},
		Entry{Attr: "bin_y", Suffix: "BinY", Kind: KindWithRBV},
		Entry{Attr: "color_mode", Suffix: "ColorMode", Kind: KindWithRBV},
		Entry{Attr: "data_type", Suffix: "DataType", Kind: KindWithRBV},
		Entry{Attr: "detector_state", Suffix: "DetectorState_RBV", Kind: KindReadOnly},
		Entry{Attr: "frame_type", Suffix: "FrameType", Kind: KindWithRBV},
		Entry{Attr: "gain", Suffix: "Gain", Kind: KindWithRBV},
		Entry{Attr: "image_mode", Suffix: "ImageMode", Kind: KindWithRBV},
		Entry{Attr: "manufacturer", Suffix: "Manufacturer_RBV", Kind: KindReadOnly},
	)

	mustGroup(c, NewGroup("max_size", "Maximum sensor size in the XY directions", KindReadOnly,
		[2]string{"max_size_x", "MaxSizeX_RBV"},
		[2]string{"max_size_y", "MaxSizeY_RBV"},
	))

	mustAdd(c,
		Entry{Attr: "min_x", Suffix: "MinX", Kind: KindWithRBV},
		Entry{Attr: "min_y", Suffix: "MinY", Kind: KindWithRBV},
		Entry{Attr: "model", Suffix: "Model_RBV", Kind: KindReadOnly},
		Entry{Attr: "num_exposures", Suffix: "NumExposures", Kind: KindWithRBV},
		Entry{Attr: "num_exposures_counter", Suffix: "NumExposuresCounter_RBV", Kind: KindReadOnly},
		Entry{Attr: "num_images", Suffix: "NumImages", Kind: KindWithRBV},
		Entry{Attr: "num_images_counter", Suffix: "NumImagesCounter_RBV", Kind: KindReadOnly},
		Entry{Attr: "read_status", Suffix: "ReadStatus"},
	)

	mustGroup(c, NewGroup("reverse", "", KindWithRBV,
		[2]string{"reverse_x", "ReverseX"},
		[2]string{"reverse_y", "ReverseY"},
	))

	mustAdd(c,
		Entry{Attr: "shutter_close_delay", Suffix: "ShutterCloseDelay", Kind: KindWithRBV},
		Entry{Attr: "shutter_close_epics", Suffix: "ShutterCloseEPICS"},
		Entry{Attr: "shutter_control", Suffix: "ShutterControl", Kind: KindWithRBV},
		Entry{Attr: "shutter_control_epics", Suffix: "ShutterControlEPICS"},
		Entry{Attr: "shutter_fanout", Suffix: "ShutterFanout"},
		Entry{Attr: "shutter_mode", Suffix: "ShutterMode", Kind: KindWithRBV},
		Entry{Attr: "shutter_open_delay", Suffix: "ShutterOpenDelay", Kind: KindWithRBV},
		Entry{Attr: "shutter_open_epics", Suffix: "ShutterOpenEPICS"},
		Entry{Attr: "shutter_status_epics", Suffix: "ShutterStatusEPICS_RBV", Kind: KindReadOnly},
		Entry{Attr: "shutter_status", Suffix: "ShutterStatus_RBV", Kind: KindReadOnly},
	)

	mustGroup(c, NewGroup("size", "", KindWithRBV,
		[2]string{"size_x", "SizeX"},
		[2]string{"size_y", "SizeY"},
	))

	mustAdd(c,
		Entry{Attr: "status_message", Suffix: "StatusMessage_RBV", Kind: KindReadOnly, String: true},
		Entry{Attr: "string_from_server", Suffix: "StringFromServer_RBV", Kind: KindReadOnly, String: true},
		Entry{Attr: "string_to_server", Suffix: "StringToServer_RBV", Kind: KindReadOnly, String: true},
		Entry{Attr: "temperature", Suffix: "Temperature", Kind: KindWithRBV},
		Entry{Attr: "temperature_actual", Suffix: "TemperatureActual"},
		Entry{Attr: "time_remaining", Suffix: "TimeRemaining_RBV", Kind: KindReadOnly},
		Entry{Attr: "trigger_mode", Suffix: "TriggerMode", Kind: KindWithRBV},
	)

	return c
}

// mustAdd panics on invalid built-in tables.
func mustAdd(c *Catalog, entries ...Entry) {
	if err := c.Add(entries...); err != nil {
		panic(err)
	}
}

func mustGroup(c *Catalog, g Group) {
	if err := c.AddGroup(g); err != nil {
		panic(err)
	}
}
