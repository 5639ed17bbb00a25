/*
Package events provides an in-memory event broker for the facade's change
notifications.

The events package implements a lightweight event bus for broadcasting
per-series state transitions to interested subscribers, with asynchronous,
non-blocking delivery so a slow subscriber never stalls the facade.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Topics                             │          │
	│  │                                              │          │
	│  │    - stateupdated (any per-series transition)│         │
	│  │    - deleted (facade destroyed)              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Delivery guarantees

Publish is non-blocking from the caller's perspective: it only blocks if
the broker's own internal queue (buffered to 100) is full, which only
happens under sustained event storms. Per-subscriber delivery is
best-effort — a subscriber whose buffer (50) is full misses the event
rather than stalling every other subscriber.
*/
package events
