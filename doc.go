/*
Package delayhandler implements a delay map: a container holding values,
each with an associated delay, which yields them one at a time in expiry
order once their delay has elapsed.

Values are inserted with Insert, retrieved after expiry with Next, and
cancelled before expiry with Remove. A value may be pending at most once
at any time. The Dispatcher drives a DelayMap in push mode, running a
caller supplied action on a worker pool for every value that expires.
*/
package delayhandler
