// Package dbgen builds a fusecheck database file from the FuseNCA index.
//
// The index is a JSON document listing, for every firmware release, its
// production fuse count and the file name of its SystemVersion archive:
//
//	{
//	  "last_updated": "2025-06-01",
//	  "data": [
//	    {"version": "20.1.0", "fuses_production": 21, "system_title_nca": "...nca"}
//	  ]
//	}
//
// The document is validated against a CUE schema before use. Consecutive
// releases with equal fuse counts are folded into one [FUSE] range, and
// every release gets an [NCA] line, newest first.
package dbgen
