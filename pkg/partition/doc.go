/*
Package partition declares the PartitionAccessor contract and the
factory function that derives one from a cluster's partition properties.
See pkg/partition/rangepartition and pkg/partition/hashpartition for
concrete accessors.
*/
package partition
