/*
Package deadlinequeue implements a deadline queue.
Entries hold a value and an absolute deadline, and are surfaced in
deadline order once their deadline has passed. Insert returns an opaque
Item which addresses the entry, and which Cancel accepts to remove the
entry before it expires. Dequeue is a blocking call which returns the
first entry in the queue when its deadline expires, and which blocks
while the queue is empty.
*/
package deadlinequeue
