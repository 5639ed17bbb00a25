/*
Package retry implements the Update-with-Retry wrapper (§4.6): each
ForceUpdate starts a pkg/jpdict.Facade Update pass that is retried until
it succeeds, reacting to network state and error class. The controller
keeps no timer of its own; callers decide when to call ForceUpdate.

	ForceUpdate()
	   │
	   ▼
	┌──────────────────────────────────────────────┐
	│ attempt := Update(lang, forceFetch)            │
	└───────────────┬────────────────────────────────┘
	                │
	        ┌───────┴────────┬───────────────────┬─────────────┐
	        ▼                ▼                   ▼             ▼
	     success      ErrOffline            retriable     ErrConstraintViolation
	        │                │                   │             │
	    go idle       wait for Online()    backoff.Next()   idle-timer retry
	                  then retry           then retry         (up to 2x)
	                                                            │
	                                                       else: surface once

ForceUpdate is refused while an attempt is running or a zero-length retry wait is in
progress; a request made while waiting for the network is queued.
*/
package retry
