package main

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/wayfinder/pkg/balancer"
	"github.com/cuemby/wayfinder/pkg/discoverysource/staticsource"
	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/metrics"
	"github.com/cuemby/wayfinder/pkg/partition"
	"github.com/cuemby/wayfinder/pkg/partition/hashpartition"
	"github.com/cuemby/wayfinder/pkg/partition/rangepartition"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/strategy/degrader"
	"github.com/cuemby/wayfinder/pkg/strategy/roundrobin"
	"github.com/cuemby/wayfinder/pkg/transport"
	"github.com/cuemby/wayfinder/pkg/transport/grpctransport"
	"github.com/cuemby/wayfinder/pkg/transport/httptransport"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a service against a fixture and print what the engine built",
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().String("fixture", "fixture.yaml", "Path to the YAML fixture of clusters/services/uris")
	resolveCmd.Flags().String("service", "", "Service name to resolve (required)")
	resolveCmd.Flags().String("key", "", "Optional routing key to map to a partition")
	resolveCmd.Flags().String("metrics-addr", "", "Optional address to serve /metrics on while resolving")
	resolveCmd.MarkFlagRequired("service")
}

func runResolve(cmd *cobra.Command, args []string) error {
	fixturePath, _ := cmd.Flags().GetString("fixture")
	serviceName, _ := cmd.Flags().GetString("service")
	key, _ := cmd.Flags().GetString("key")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	fix, err := loadFixture(fixturePath)
	if err != nil {
		return err
	}

	uriStore := staticsource.NewStore[properties.UriProperties]()
	clusterStore := staticsource.NewStore[properties.ClusterProperties]()
	serviceStore := staticsource.NewStore[properties.ServiceProperties]()

	for name, c := range fix.Clusters {
		clusterStore.Set(name, c.toProperties())
	}
	for name, s := range fix.Services {
		serviceStore.Set(name, s.toProperties())
	}
	for cluster, uris := range fix.URIs {
		uriStore.Set(cluster, uriProperties(cluster, uris))
	}

	transportFactories := transport.NewRegistry()
	httptransport.Register(transportFactories)
	grpctransport.Register(transportFactories)

	strategyFactories := strategy.NewRegistry()
	roundrobin.Register(strategyFactories)
	degrader.Register(strategyFactories)

	engine := balancer.New(balancer.Config{
		UriPublisher:             uriStore,
		ClusterPublisher:         clusterStore,
		ServicePublisher:         serviceStore,
		TransportFactories:       transportFactories,
		StrategyFactories:        strategyFactories,
		PartitionAccessorFactory: accessorFactory,
	})

	if metricsAddr != "" {
		collector := metrics.NewCollector(engine)
		collector.Start()
		defer collector.Stop()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Errorf("metrics server failed", err)
			}
		}()
		log.Logger.Info().Str("addr", metricsAddr).Msg("serving /metrics")
	}

	if err := awaitService(engine, serviceName); err != nil {
		return err
	}

	svcItem, _ := engine.GetServiceProperties(serviceName)
	if svcItem.Value == nil {
		return fmt.Errorf("service %q is not in the fixture", serviceName)
	}
	clusterName := svcItem.Value.ClusterName

	if err := awaitCluster(engine, clusterName); err != nil {
		return err
	}

	printResolution(engine, serviceName, clusterName, key)

	done := make(chan struct{})
	engine.Shutdown(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("engine shutdown timed out")
	}
	return nil
}

func awaitService(engine *balancer.Engine, serviceName string) error {
	ready := make(chan struct{})
	engine.ListenToService(serviceName, func() { close(ready) })
	select {
	case <-ready:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("service %q never initialized", serviceName)
	}
}

func awaitCluster(engine *balancer.Engine, clusterName string) error {
	ready := make(chan struct{})
	engine.ListenToCluster(clusterName, func() { close(ready) })
	select {
	case <-ready:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("cluster %q never initialized", clusterName)
	}
}

func printResolution(engine *balancer.Engine, serviceName, clusterName, key string) {
	fmt.Printf("service %s on cluster %s\n", serviceName, clusterName)

	clusterItem, _ := engine.GetClusterProperties(clusterName)
	var schemes []string
	if clusterItem.Value != nil {
		schemes = clusterItem.Value.PrioritizedSchemes
	}
	fmt.Printf("  prioritized schemes: %v\n", schemes)

	for _, scheme := range schemes {
		client := engine.GetTransportClient(clusterName, scheme)
		fmt.Printf("  transport[%s]: %T\n", scheme, client)
	}

	uriItem, _ := engine.GetUriProperties(clusterName)
	if uriItem.Value != nil {
		uris := make([]string, 0, len(uriItem.Value.Endpoints))
		for uri := range uriItem.Value.Endpoints {
			uris = append(uris, uri)
		}
		sort.Strings(uris)
		for _, uri := range uris {
			tracker := engine.GetTrackerClient(clusterName, uri)
			if tracker == nil {
				fmt.Printf("  tracker[%s]: none (no transport client for scheme)\n", uri)
				continue
			}
			fmt.Printf("  tracker[%s]: partitions=%v\n", uri, tracker.Partition)
		}
	}

	for _, entry := range engine.GetStrategiesForService(serviceName, schemes) {
		fmt.Printf("  strategy[%s]: %T\n", entry.Scheme, entry.Strategy)
	}

	if key != "" {
		if accessor := engine.GetPartitionAccessor(clusterName); accessor != nil {
			p, err := accessor.PartitionFor(key)
			if err != nil {
				fmt.Printf("  partition(%q): error: %v\n", key, err)
			} else {
				fmt.Printf("  partition(%q): %d\n", key, p)
			}
		}
	}

	counts := engine.Counts()
	fmt.Printf("  engine: %d clusters, %d services, %d transport clients, version %d\n",
		counts.Clusters, counts.Services, counts.TransportClients, counts.Version)
}

// accessorFactory dispatches on the cluster's partition type.
func accessorFactory(props properties.PartitionProperties) (partition.Accessor, error) {
	switch props.Type {
	case properties.PartitionRange:
		return rangepartition.Factory(props)
	case properties.PartitionHash:
		return hashpartition.Factory(props)
	default:
		return partition.Single(), nil
	}
}
