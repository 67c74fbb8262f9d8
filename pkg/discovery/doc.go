/*
Package discovery is the property event bus sitting between an external
discovery Publisher and the engine's subscribers, one Bus per property
kind (URI, cluster, service).

A Bus fans a Publisher's per-name notifications — exactly one Initialize,
then any number of Add/Remove, all in publisher order — out to every
Listener registered for that name. Register is idempotent against races:
no matter how many goroutines call Register for the same name before the
first Watch completes, the Publisher sees exactly one Watch call, because
Register's upstream-subscribe step runs inside a singleflight.Group keyed
by name.

Bus does not itself enforce "callbacks run on the event thread" — that
discipline belongs to the subscriber on the receiving end (see
pkg/balancer), which always submits its handling of a dispatched callback
through the event loop before touching any index or cache.
*/
package discovery
