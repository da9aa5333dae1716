// Package metadata parses and normalizes the info.json record carried inside
// every zipball.
//
// Normalization folds legacy key aliases, fills documented defaults for
// missing optional keys, strips unrecognized keys, and parses the timestamp
// and broadcast fields. Records missing a required key or carrying an
// unparseable required date are rejected with a FormatError naming the key.
package metadata
