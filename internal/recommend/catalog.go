package recommend

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// catalogColumns is the expected CSV header, in order.
var catalogColumns = []string{
	"instance_name", "provider", "region", "vcpus", "memory_gb", "hourly_cost",
}

// parseCatalog decodes the instance catalog CSV. The header row is required
// and validated so a malformed dataset fails loudly instead of producing
// nonsense recommendations.
func parseCatalog(data string) ([]Instance, error) {
	reader := csv.NewReader(strings.NewReader(data))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading instance catalog: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("instance catalog is empty")
	}

	header := records[0]
	if len(header) != len(catalogColumns) {
		return nil, fmt.Errorf("instance catalog header has %d columns, want %d", len(header), len(catalogColumns))
	}
	for i, want := range catalogColumns {
		if header[i] != want {
			return nil, fmt.Errorf("instance catalog column %d is %q, want %q", i, header[i], want)
		}
	}

	catalog := make([]Instance, 0, len(records)-1)
	for line, rec := range records[1:] {
		vcpus, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("instance catalog line %d: invalid vcpus %q", line+2, rec[3])
		}
		memGB, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("instance catalog line %d: invalid memory_gb %q", line+2, rec[4])
		}
		cost, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("instance catalog line %d: invalid hourly_cost %q", line+2, rec[5])
		}

		catalog = append(catalog, Instance{
			InstanceName: rec[0],
			Provider:     rec[1],
			Region:       rec[2],
			VCPUs:        vcpus,
			MemoryGB:     memGB,
			HourlyCost:   cost,
		})
	}

	return catalog, nil
}
