// Package storage persists finalized episodes in two redundant formats and
// reads them back.
//
// Layout under the data root:
//
//	<root>/<class>/<type>/episode_<YYYYmmdd_HHMMSS>_<class>_<type>.csv
//	<root>/<class>/<type>/episode_<YYYYmmdd_HHMMSS>_<class>_<type>.sqlite
//
// The CSV file is the tabular form: a header of sample.Fields and one row per
// reading. The .sqlite file is the structured container: episode attributes in
// an attributes table and gzip-compressed little-endian arrays in a datasets
// table, with "/" in dataset names standing for groups.
//
// Each format is written independently. A failure in one is reported as a
// *PersistenceError without preventing the other.
package storage
