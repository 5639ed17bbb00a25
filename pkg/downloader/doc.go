/*
Package downloader implements the manifest/snapshot/patch download
protocol described in §4.2: given a series, major version, language and
optional current version, it plans which files to fetch and streams each
one as typed Events without ever buffering a whole file.

# Flow

	Download(req)
	  │
	  ▼
	manifestCache.fetch(lang)  ── cached per language, forceFetch bypasses
	  │
	  ▼
	entryFor(series, majorVersion) ── validates the manifest row
	  │
	  ▼
	plan(entry, current) ── full snapshot (if minor moved) + trailing patches
	  │
	  ▼
	runFile × N  ── GET, scan header, scan entry/deletion lines
	  │             (splitLJSONLines handles \n, \r\n, and bare \r)
	  ▼
	Stream.events ── version, entry, deletion, progress, versionend

A stallWatchdog (pkg/downloader/watchdog.go, adapted from the teacher's
HTTP health-checker shape) cancels the stream if no line has been
read for StallTimeout; Stream.Cancel() does the same on demand.
*/
package downloader
