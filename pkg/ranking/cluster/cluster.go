// Package cluster groups validators sharing an identity parent or a
// display-name prefix, then randomly hides a size-dependent fraction of each
// cluster's members from default visibility.
package cluster

import (
	"math/rand/v2"
	"strings"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

// Analyze assigns clusterName/clusterMembers/partOfCluster to every
// validator, then samples showClusterMember per cluster according to the
// size band table. Mutates ranked in place.
func Analyze(ranked []types.RankedValidator) {
	assignClusters(ranked)
	sampleVisibility(ranked)
}

func assignClusters(ranked []types.RankedValidator) {
	counts := make(map[string]int)
	for i := range ranked {
		if key := clusterKey(ranked[i].Identity); key != "" {
			counts[key]++
		}
	}

	for i := range ranked {
		id := ranked[i].Identity
		switch {
		case id.DisplayParent != "":
			ranked[i].ClusterName = id.DisplayParent
		case id.Display != "":
			ranked[i].ClusterName = cleanClusterName(id.Display)
		default:
			ranked[i].ClusterName = ""
		}
		ranked[i].ClusterMembers = counts[clusterKey(id)]
		ranked[i].PartOfCluster = ranked[i].ClusterMembers > 1
		ranked[i].ShowClusterMember = true
	}
}

// clusterKey returns the grouping key used to count and sample a validator's
// cluster: the exact displayParent when present, otherwise the 6-rune
// display prefix, otherwise empty. The "dp:"/"px:" tags keep the two
// namespaces from colliding with each other, since a displayParent and a
// display prefix are never the same kind of value. This key - not the
// cleaned ClusterName stored for display - is what determines membership:
// ClusterName can differ between members of the same prefix cluster (e.g.
// "StakinA", "StakinB", "StakinC" all share prefix "Stakin" but clean to
// three distinct names), so grouping by ClusterName would split one cluster
// into several and undercount clusterMembers.
func clusterKey(id types.Identity) string {
	switch {
	case id.DisplayParent != "":
		return "dp:" + id.DisplayParent
	case id.Display != "":
		return "px:" + prefixOf(id.Display)
	default:
		return ""
	}
}

// prefixOf returns the first 6 runes of display (or the whole string if shorter).
func prefixOf(display string) string {
	r := []rune(display)
	if len(r) > 6 {
		r = r[:6]
	}
	return string(r)
}

// cleanClusterName strips up to two trailing digits, then any trailing '-'
// or '_', from a display name used as a heuristic prefix-cluster's name.
func cleanClusterName(display string) string {
	name := display
	stripped := 0
	for stripped < 2 && len(name) > 0 && name[len(name)-1] >= '0' && name[len(name)-1] <= '9' {
		name = name[:len(name)-1]
		stripped++
	}
	name = strings.TrimRight(name, "-_")
	return name
}

// show returns the number of members of a cluster of the given size that
// stay visible, per the size-band table.
func show(size int) int {
	switch {
	case size <= 2:
		return size
	case size <= 10:
		return int(0.8 * float64(size))
	case size <= 20:
		return int(0.6 * float64(size))
	case size <= 50:
		return int(0.4 * float64(size))
	default:
		return int(0.2 * float64(size))
	}
}

// sampleVisibility hides hide(size) members of every cluster with more than
// one member, chosen uniformly at random without replacement. Clusters are
// grouped by clusterKey, the true membership key, not by the cleaned
// ClusterName, which can vary within one prefix cluster.
func sampleVisibility(ranked []types.RankedValidator) {
	clusters := make(map[string][]int)
	for i := range ranked {
		if ranked[i].ClusterMembers <= 1 {
			continue
		}
		key := clusterKey(ranked[i].Identity)
		if key == "" {
			continue
		}
		clusters[key] = append(clusters[key], i)
	}

	for _, members := range clusters {
		size := ranked[members[0]].ClusterMembers
		hide := size - show(size)
		if hide <= 0 {
			continue
		}
		for _, idx := range sampleWithoutReplacement(members, hide) {
			ranked[idx].ShowClusterMember = false
		}
	}
}

// sampleWithoutReplacement returns hide distinct elements drawn uniformly at
// random from indices, via a partial Fisher-Yates shuffle.
func sampleWithoutReplacement(indices []int, hide int) []int {
	pool := make([]int, len(indices))
	copy(pool, indices)
	for i := 0; i < hide; i++ {
		j := i + rand.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:hide]
}
