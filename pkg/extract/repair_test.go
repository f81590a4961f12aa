package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverJSON_Direct(t *testing.T) {
	obj, ok := RecoverJSON(`{"packages":[{"name":"VIP"}]}`)
	assert.True(t, ok)
	assert.Contains(t, obj, "packages")
}

func TestRecoverJSON_FencedBlock(t *testing.T) {
	input := "Here is the result:\n```json\n{\"packages\":[{\"name\":\"VIP\"}]}\n```\nDone."
	obj, ok := RecoverJSON(input)
	assert.True(t, ok)
	assert.Contains(t, obj, "packages")
}

func TestRecoverJSON_FencedBlockNoLang(t *testing.T) {
	input := "```\n{\"packages\":[]}\n```"
	_, ok := RecoverJSON(input)
	assert.True(t, ok)
}

func TestRecoverJSON_BraceSpan(t *testing.T) {
	input := `The extracted data is {"packages":[{"name":"SD70"}]} as requested.`
	obj, ok := RecoverJSON(input)
	assert.True(t, ok)
	assert.Contains(t, obj, "packages")
}

func TestRecoverJSON_QuoteRepair(t *testing.T) {
	obj, ok := RecoverJSON(`{'packages': [{'name': 'VIP'}]}`)
	assert.True(t, ok)
	assert.Contains(t, obj, "packages")
}

func TestRecoverJSON_Garbage(t *testing.T) {
	_, ok := RecoverJSON("no json here at all")
	assert.False(t, ok)
}

func TestDecodePackages_DiscardsNonConforming(t *testing.T) {
	obj := map[string]any{
		"packages": []any{
			map[string]any{"name": "VIP", "attributes": map[string]any{"price": float64(80000)}},
			map[string]any{"attributes": map[string]any{}}, // no name
			"not an object",
			map[string]any{"name": "  "}, // blank name
		},
	}
	packages := decodePackages(obj)
	assert.Len(t, packages, 1)
	assert.Equal(t, "VIP", packages[0].Name)
}

func TestDecodePackage_StripsIdentifierFromAttributes(t *testing.T) {
	pkg, ok := decodePackage(map[string]any{
		"name": "VIP",
		"attributes": map[string]any{
			"name":  "VIP",
			"price": float64(80000),
		},
	})
	assert.True(t, ok)
	assert.NotContains(t, pkg.Attributes, "name")
	assert.Contains(t, pkg.Attributes, "price")
}

func TestDecodePackage_VietnameseNameKey(t *testing.T) {
	pkg, ok := decodePackage(map[string]any{"mã dịch vụ": "SD70"})
	assert.True(t, ok)
	assert.Equal(t, "SD70", pkg.Name)
}
