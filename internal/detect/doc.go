// Package detect works out the installed firmware version from the
// SystemVersion content archive present on the SYSTEM partition.
//
// The partition itself is reached through narrow collaborator interfaces
// (KeyStore, Partitions, Partition, DirIterator) implemented by the
// platform. Detection never fails the caller: every way it can go wrong
// is reported as an Outcome, and the caller falls back to a default
// firmware version.
//
// Only the override database supplies filename-to-version mappings. With
// no [NCA] records loaded, detection always reports EmptyDatabase.
package detect
