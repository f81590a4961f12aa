package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"telimport/pkg/extract"
)

func TestBuildUpsertFilter_WithBillingCycle(t *testing.T) {
	pkg := extract.Package{
		Name:        "VIP",
		PartnerName: "TV360",
		Attributes:  map[string]any{"billing_cycle": "1 tháng", "price": 80000},
	}
	filter := buildUpsertFilter(pkg)
	assert.Equal(t, bson.M{
		"name":                     "VIP",
		"partner_name":             "TV360",
		"attributes.billing_cycle": "1 tháng",
	}, filter)
}

func TestBuildUpsertFilter_WithoutBillingCycle(t *testing.T) {
	pkg := extract.Package{
		Name:        "VIP",
		PartnerName: "TV360",
		Attributes:  map[string]any{"price": 80000},
	}
	filter := buildUpsertFilter(pkg)
	// The cycle key is always present so the filter mirrors the unique
	// index; nil matches only documents that also have no cycle.
	assert.Contains(t, filter, "attributes.billing_cycle")
	assert.Nil(t, filter["attributes.billing_cycle"])
}

func TestBuildUpsertFilter_EmptyCycleTreatedAsAbsent(t *testing.T) {
	pkg := extract.Package{
		Name:       "VIP",
		Attributes: map[string]any{"billing_cycle": ""},
	}
	assert.Nil(t, buildUpsertFilter(pkg)["attributes.billing_cycle"])
}

func TestBuildUpsertFilter_Deterministic(t *testing.T) {
	pkg := extract.Package{
		Name:        "SD70",
		PartnerName: "VTVcab",
		Attributes:  map[string]any{"billing_cycle": "1 tháng"},
	}
	// Re-importing the same record must target the same document.
	assert.Equal(t, buildUpsertFilter(pkg), buildUpsertFilter(pkg))
}

func TestBuildUpsertFilter_DistinguishesCycles(t *testing.T) {
	monthly := extract.Package{Name: "VIP", PartnerName: "TV360",
		Attributes: map[string]any{"billing_cycle": "1 tháng"}}
	yearly := extract.Package{Name: "VIP", PartnerName: "TV360",
		Attributes: map[string]any{"billing_cycle": "12 tháng"}}
	assert.NotEqual(t, buildUpsertFilter(monthly), buildUpsertFilter(yearly))
}
