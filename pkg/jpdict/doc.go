/*
Package jpdict implements the Database Facade described in §4.5: the one
object a CLI or the retry wrapper talks to.

	Update(lang, forceFetch)
	    │
	    ├── group 1: kanji, radicals (sequential)   ─┐
	    ├── group 2: names                            ├─ concurrent (errgroup)
	    └── group 3: words                            ┘
	         │
	         ▼
	  per series: registry.Acquire → downloader.Download → applier.Run
	         │                                                   │
	         ▼                                                   ▼
	  reducer.Reduce(state, action)                     store.BulkUpdateTable
	         │
	         ▼
	  events.Broker.Publish(stateupdated)

GetKanji and GetNames read the committed tables directly; GetKanji
additionally caches a derived radical lookup (radicals.go) that is
invalidated whenever the radicals series is updated.
*/
package jpdict
