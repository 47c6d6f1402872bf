// Package recommend matches observed resource usage against a static catalog
// of cloud instance types and ranks the candidates by cost efficiency. It is
// a standalone batch computation, independent of the delivery pipeline.
package recommend

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed instances.csv
var instancesCSV string

// headroomBuffer is the safety margin applied on top of measured need: a
// candidate must offer 25% more than the workload used on average.
const headroomBuffer = 1.25

// maxPerProvider limits the final list to this many instances per provider,
// so one cheap provider cannot crowd out the comparison.
const maxPerProvider = 2

// Instance is one row of the instance catalog.
type Instance struct {
	InstanceName string
	Provider     string
	Region       string
	VCPUs        int
	MemoryGB     float64
	HourlyCost   float64
}

// Recommendation pairs a catalog instance with its efficiency score. Lower
// is better: cost per unit of buffered resource need.
type Recommendation struct {
	Instance              Instance
	CostPerNeededResource float64
}

// Recommend filters the catalog down to instances that can carry the
// observed workload (with headroom), scores them by hourly cost per needed
// resource, and returns the top candidates per provider, cheapest-per-need
// first. An empty region preference matches all regions.
func Recommend(catalog []Instance, usage Usage, regionPref string) []Recommendation {
	neededCores := usage.NeededCores()
	neededMemGB := usage.NeededMemoryGB()

	var suitable []Instance
	for _, inst := range catalog {
		cpuOK := float64(inst.VCPUs) >= neededCores*headroomBuffer
		memOK := inst.MemoryGB >= neededMemGB*headroomBuffer
		regionOK := regionPref == "" ||
			strings.Contains(strings.ToLower(inst.Region), strings.ToLower(regionPref))
		if cpuOK && memOK && regionOK {
			suitable = append(suitable, inst)
		}
	}
	if len(suitable) == 0 {
		return nil
	}

	totalNeed := (neededCores + neededMemGB) * headroomBuffer
	recommendations := make([]Recommendation, 0, len(suitable))
	for _, inst := range suitable {
		recommendations = append(recommendations, Recommendation{
			Instance:              inst,
			CostPerNeededResource: inst.HourlyCost / totalNeed,
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].CostPerNeededResource < recommendations[j].CostPerNeededResource
	})

	// Keep only the best few per provider, then re-sort the final list.
	perProvider := make(map[string]int)
	var final []Recommendation
	for _, rec := range recommendations {
		if perProvider[rec.Instance.Provider] < maxPerProvider {
			final = append(final, rec)
			perProvider[rec.Instance.Provider]++
		}
	}
	sort.Slice(final, func(i, j int) bool {
		return final[i].CostPerNeededResource < final[j].CostPerNeededResource
	})

	return final
}

// LoadCatalog parses the embedded instance dataset.
func LoadCatalog() ([]Instance, error) {
	return parseCatalog(instancesCSV)
}

func (r Recommendation) String() string {
	return fmt.Sprintf("%s/%s (%s): %d vCPU, %.1f GB, $%.4f/h, score %.6f",
		r.Instance.Provider, r.Instance.InstanceName, r.Instance.Region,
		r.Instance.VCPUs, r.Instance.MemoryGB, r.Instance.HourlyCost,
		r.CostPerNeededResource)
}
