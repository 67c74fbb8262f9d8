/*
Package log wraps zerolog to give wayfinder a single, field-tagged
logger.

Call Init once at process start (the core engine never calls it itself;
library code only ever writes through the package-level Logger). Use
With, or the WithCluster/WithService shorthands, to get child loggers
carrying the field a subsystem cares about most.
*/
package log
