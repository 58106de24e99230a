package importer

import (
	"reflect"
	"testing"

	"github.com/mmdatafocus/syncdb_backend/syncdb"
)

func TestNormalizeMinQuantity(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 1},
		{1, 1},
		{5, 5},
		{100, 100},
	}
	for _, tt := range tests {
		if got := normalizeMinQuantity(tt.in); got != tt.want {
			t.Fatalf("normalizeMinQuantity(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsBasePriceBreak(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		minQuantity int
		want        bool
	}{
		{"non-member single unit sets base price", priceLevelNonMember, 1, true},
		{"non-member zero break normalizes to base price", priceLevelNonMember, normalizeMinQuantity(0), true},
		{"non-member bulk break is a tier row", priceLevelNonMember, 5, false},
		{"member single unit is a tier row", priceLevelMember, 1, false},
		{"distributor single unit is a tier row", priceLevelDistributor, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBasePriceBreak(tt.level, tt.minQuantity); got != tt.want {
				t.Fatalf("isBasePriceBreak(%q, %d) = %v, want %v", tt.level, tt.minQuantity, got, tt.want)
			}
		})
	}
}

func TestMissingPriceLevels(t *testing.T) {
	tests := []struct {
		name   string
		levels []syncdb.PriceLevel
		want   []string
	}{
		{
			name:   "no usd branch reports all three tiers",
			levels: nil,
			want:   []string{priceLevelNonMember, priceLevelMember, priceLevelDistributor},
		},
		{
			name: "one tier present",
			levels: []syncdb.PriceLevel{
				{LevelName: priceLevelNonMember},
			},
			want: []string{priceLevelMember, priceLevelDistributor},
		},
		{
			name: "all tiers present",
			levels: []syncdb.PriceLevel{
				{LevelName: priceLevelNonMember},
				{LevelName: priceLevelMember},
				{LevelName: priceLevelDistributor},
			},
			want: nil,
		},
		{
			name: "unknown level does not satisfy a tier",
			levels: []syncdb.PriceLevel{
				{LevelName: "Wholesale"},
			},
			want: []string{priceLevelNonMember, priceLevelMember, priceLevelDistributor},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := missingPriceLevels(tt.levels)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("missingPriceLevels(%v) = %v, want %v", tt.levels, got, tt.want)
			}
		})
	}
}

func TestPriceListNameForLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{priceLevelNonMember, "Nonmember bulk pricing"},
		{priceLevelMember, "Member bulk pricing"},
		{priceLevelDistributor, "Distributor bulk pricing"},
		{"Wholesale", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := priceListNameForLevel(tt.level); got != tt.want {
			t.Fatalf("priceListNameForLevel(%q) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
