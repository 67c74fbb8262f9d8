package balancer

import (
	"net/url"
	"strings"

	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/properties"
	"github.com/cuemby/wayfinder/pkg/strategy"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// OrderedStrategy pairs a scheme with the strategy resolved for it, in
// the caller-supplied priority order.
type OrderedStrategy struct {
	Scheme   string
	Strategy strategy.Strategy
}

// buildTracker constructs a TrackerClient for uri on cluster, wrapping
// whatever transport client is currently installed for the URI's scheme.
// Returns nil (and logs) if the cluster has no transport clients yet or
// none match the URI's scheme — both are the normal "degraded" path, not
// an error.
func (e *Engine) buildTracker(cluster, uri string, partitionData map[int]properties.PartitionData) *transport.Tracker {
	raw, ok := e.clusterClients.Load(cluster)
	if !ok {
		log.WithCluster(cluster).Warn().Str("uri", uri).Msg("no transport clients known for cluster yet")
		return nil
	}
	clients := raw.(map[string]transport.Client)

	scheme := schemeOf(uri)
	client, ok := clients[strings.ToLower(scheme)]
	if !ok {
		log.WithCluster(cluster).Warn().Str("uri", uri).Str("scheme", scheme).Msg("no transport client for scheme")
		return nil
	}

	weights := make(map[int]float64, len(partitionData))
	for id, pd := range partitionData {
		weights[id] = pd.Weight
	}
	return &transport.Tracker{URI: uri, Client: client, Partition: weights}
}

func schemeOf(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Scheme
}
