/*
Package eventloop is the single-writer serializer every core mutation in
the balancer runs through. Submit never blocks the caller; the queued
function runs on the loop's one goroutine, strictly in submission order.
ShutdownAndWait stops new submissions, drains what's queued, and invokes
a callback once the goroutine has exited.
*/
package eventloop
