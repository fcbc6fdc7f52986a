// EWM Stats - Event Similarity and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ewm-stats

/*
Package similarity maintains the online event-to-event similarity model.

For every event the engine keeps the weight each user has given it (the
maximum over all of that user's actions) and the running total of those
weights. For every unordered event pair it keeps the co-weight: the sum over
users of min(weight on A, weight on B). The score of a pair is

	coWeight(A,B) / (sqrt(total(A)) * sqrt(total(B)))

with 0 whenever the denominator is 0. Totals are sums of raw weights, not of
squared weights, so the score is not a textbook cosine. Because min(a,b) is
at most sqrt(a*b), scores still stay within [0, 1].

# Locking

Updates for one user are serialised by a per-user lock, which keeps the set
of events that user touched stable for the duration of an update. Each event
has its own mutex, created on first use. A pair is only updated with both
event mutexes held, taken in ascending id order, and no event mutex is ever
held while waiting for a user lock. Updates touching disjoint events never
block each other.

An event's mutex is not held across a whole update. The weight and total of
E are raised under E's mutex alone, which is then released before each pair
(E, F) is locked in ascending order. Another user's update may therefore
observe E's new total before this user's pairs are recomputed. The per-user
lock keeps each user's min-weight contribution to a pair applied exactly
once, so accumulators and totals reach the same values as a serial run.
*/
package similarity
