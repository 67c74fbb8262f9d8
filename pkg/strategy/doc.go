/*
Package strategy declares the per-(service, scheme) host selector
interface and the pluggable Factory/Registry around it. See
pkg/strategy/roundrobin and pkg/strategy/degrader for concrete Factories.
*/
package strategy
