/*
Package transport defines the engine's view of a transport client: an
interface heavy enough to own real I/O resources, a Factory interface
reference implementations satisfy per URI scheme, and a Registry mapping
scheme to Factory. See pkg/transport/httptransport and
pkg/transport/grpctransport for concrete Factories.
*/
package transport
