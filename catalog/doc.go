// Package catalog describes the signals of a device as plain data.
//
// A Catalog is a table of entries, each naming a logical attribute, the channel suffix
// relative to the device prefix, the capability of the channel and an explicit
// documentation source. Catalogs are built in code (see CamBase) or loaded from YAML, then
// bound to a transport with Bind, which creates one channel per entry.
//
// Entries of kind KindWithRBV follow the areaDetector convention: the suffix names the
// set-point channel and the suffix with "_RBV" appended names the readback channel.
package catalog
