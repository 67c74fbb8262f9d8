/*
Package balancer is the reconciliation core of wayfinder: the
client-side service load balancer engine that sits behind three property
event buses (URI, cluster, service — pkg/discovery) and maintains three
authoritative indexes plus three derived caches, fanning out changes to
one of them into rebuilds of the others.

# Shape of the engine

An Engine (balancer.go) owns:

  - Three indexes (state.go): uriIndex, clusterIndex, serviceIndex, each a
    sync.Map from name to a properties.VersionedItem, plus the reverse
    index servicesPerCluster.
  - Three derived caches (caches.go/state.go): clusterClients (one
    transport.Client per cluster+scheme), trackerClients (one
    transport.Tracker per cluster+URI), serviceStrategies (one
    strategy.Strategy per service+scheme), plus a memoized per-service
    ordered-strategy list.
  - Three subscribers (uri_subscriber.go, cluster_subscriber.go,
    service_subscriber.go), each wrapping a waiter (waiter.go) that
    implements the ensureListening handshake described below, and each
    registered against its corresponding pkg/discovery.Bus.
  - A listener registry (listener.go) fed onClientAdded/onClientRemoved/
    onStrategyAdded/onStrategyRemoved notifications.

Every one of those objects is mutated from exactly one place: tasks
submitted to the pkg/eventloop.Loop owned by the Engine. Readers (the
public Get* methods and the counters in counts.go) touch the sync.Map indexes and the frozen
inner maps directly, without ever touching the loop — reads are
lock-free against the event thread.

# The ensureListening handshake

A caller that wants to be told about a property's first value (without
polling) calls Engine.ListenToService or Engine.ListenToCluster. Both
delegate to a waiter (one per subscriber) that tracks, per property
name, a queue of callbacks waiting for that name's first
OnInitialize. The queue is created by exactly one caller (a
check-then-install under the waiter's lock) and is irrevocably closed
the moment OnInitialize fires;
any offer racing a close loses and the losing caller invokes its own
callback immediately, since the property is already known by then.

# Why cross-fanout lives in the cluster subscriber

Of the three subscribers, the cluster subscriber is the one with real
fanout: a cluster's prioritized-scheme list changing forces a rebuild of
that cluster's transport clients, a rebuild of every tracker client that
referenced them, and a refresh of every downstream service's strategy
map. See cluster_subscriber.go for the full sequence, and
service_subscriber.go for refreshServiceStrategies.
*/
package balancer
