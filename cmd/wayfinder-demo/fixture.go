package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/wayfinder/pkg/properties"
)

// fixture is the YAML shape wayfinder-demo loads: a static snapshot of
// the three property kinds a discovery backend would publish.
type fixture struct {
	Clusters map[string]fixtureCluster       `yaml:"clusters"`
	Services map[string]fixtureService       `yaml:"services"`
	URIs     map[string]map[string]fixtureURI `yaml:"uris"` // cluster -> uri -> metadata
}

type fixtureCluster struct {
	PrioritizedSchemes []string          `yaml:"prioritizedSchemes"`
	Properties         map[string]string `yaml:"properties"`
	Partition          fixturePartition  `yaml:"partition"`
}

type fixturePartition struct {
	Type   string `yaml:"type"` // none, range, hash
	Count  int    `yaml:"count"`
	Bucket int64  `yaml:"bucket"`
}

type fixtureService struct {
	Cluster            string            `yaml:"cluster"`
	Strategies         []string          `yaml:"strategies"`
	StrategyProperties map[string]string `yaml:"strategyProperties"`
}

type fixtureURI struct {
	Partitions map[int]float64 `yaml:"partitions"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

func (c fixtureCluster) toProperties() *properties.ClusterProperties {
	return &properties.ClusterProperties{
		PrioritizedSchemes: c.PrioritizedSchemes,
		Properties:         c.Properties,
		Partition:          c.Partition.toProperties(),
	}
}

func (p fixturePartition) toProperties() properties.PartitionProperties {
	out := properties.PartitionProperties{Count: p.Count, Bucket: p.Bucket}
	switch p.Type {
	case "range":
		out.Type = properties.PartitionRange
	case "hash":
		out.Type = properties.PartitionHash
	default:
		out.Type = properties.PartitionNone
	}
	return out
}

func (s fixtureService) toProperties() *properties.ServiceProperties {
	return &properties.ServiceProperties{
		ClusterName:        s.Cluster,
		StrategyList:       s.Strategies,
		StrategyProperties: s.StrategyProperties,
	}
}

func uriProperties(clusterName string, uris map[string]fixtureURI) *properties.UriProperties {
	endpoints := make(map[string]properties.URIEndpoint, len(uris))
	for uri, meta := range uris {
		pdm := make(map[int]properties.PartitionData, len(meta.Partitions))
		for id, weight := range meta.Partitions {
			pdm[id] = properties.PartitionData{Weight: weight}
		}
		if len(pdm) == 0 {
			pdm[0] = properties.PartitionData{Weight: 1.0}
		}
		endpoints[uri] = properties.URIEndpoint{URI: uri, PartitionDataMap: pdm}
	}
	return &properties.UriProperties{ClusterName: clusterName, Endpoints: endpoints}
}
