package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// parseStrategy attempts to recover a JSON object from model output.
type parseStrategy func(string) (map[string]any, bool)

// repairStrategies is the ordered recovery chain for replies that ignored the
// structured-output instruction. The first strategy yielding a parseable
// object wins.
var repairStrategies = []parseStrategy{
	parseDirect,
	parseFencedBlock,
	parseBraceSpan,
	parseQuoteRepair,
}

// RecoverJSON extracts a JSON object from raw model output.
func RecoverJSON(text string) (map[string]any, bool) {
	for _, strategy := range repairStrategies {
		if obj, ok := strategy(text); ok {
			return obj, true
		}
	}
	return nil, false
}

func parseDirect(text string) (map[string]any, bool) {
	return tryUnmarshal(text)
}

func parseFencedBlock(text string) (map[string]any, bool) {
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return tryUnmarshal(m[1])
}

func parseBraceSpan(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	return tryUnmarshal(text[start : end+1])
}

// parseQuoteRepair is the last resort: naive single-to-double quote
// replacement for models that emit Python-style dicts.
func parseQuoteRepair(text string) (map[string]any, bool) {
	return tryUnmarshal(strings.ReplaceAll(text, "'", `"`))
}

func tryUnmarshal(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// decodePackages validates the packages list of a recovered object record by
// record, discarding entries that do not conform to the flexible schema.
func decodePackages(obj map[string]any) []Package {
	rawList, ok := obj["packages"].([]any)
	if !ok {
		return nil
	}
	var packages []Package
	for _, raw := range rawList {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		pkg, ok := decodePackage(entry)
		if !ok {
			continue
		}
		packages = append(packages, pkg)
	}
	return packages
}

func decodePackage(entry map[string]any) (Package, bool) {
	name, _ := entry["name"].(string)
	if name == "" {
		// Vietnamese-prompted replies sometimes use the display key.
		name, _ = entry["mã dịch vụ"].(string)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Package{}, false
	}

	pkg := Package{Name: name, Attributes: map[string]any{}}
	if partner, ok := entry["partner_name"].(string); ok {
		pkg.PartnerName = strings.TrimSpace(partner)
	}
	if svc, ok := entry["service_type"].(string); ok {
		pkg.ServiceType = strings.TrimSpace(svc)
	}
	if attrs, ok := entry["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			if k == "name" {
				continue // the identifier never duplicates into attributes
			}
			pkg.Attributes[k] = v
		}
	}
	return pkg, true
}
