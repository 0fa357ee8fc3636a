// Package fuse knows how many anti-downgrade fuses each firmware release
// expects and how many are burnt on a device.
//
// The requirement side is a fixed, ordered rule table (first match wins).
// The burnt side is the population count of the two reserved ODM fuse
// registers, ODM6 and ODM7, read through a Registers source.
package fuse
