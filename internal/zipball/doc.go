// Package zipball validates, extracts, and repackages content bundles.
//
// A zipball is a ZIP archive named <md5>.zip whose entries are all rooted at
// a single <md5>/ directory containing at least info.json. Extraction is
// atomic: the archive is staged into a sibling directory and renamed into
// place, with any previous tree preserved as a backup until the rename
// succeeds.
package zipball
