package sbom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
)

// Format identifies the SBOM dialect.
type Format string

const (
	FormatSPDX      Format = "SPDX"
	FormatCycloneDX Format = "CycloneDX"
	FormatUnknown   Format = "Unknown"
)

// ErrEmptyDocument is returned by Parse for empty input.
var ErrEmptyDocument = errors.New("empty SBOM document")

// Document is a parsed SBOM. The set of implementations is closed:
// *SPDXDocument, *CycloneDXDocument and *UnknownDocument.
type Document interface {
	Format() Format
	Inventory() []domain.Software
	sealed()
}

// SPDXPackage is the subset of an SPDX 2.x package the analyzer needs.
type SPDXPackage struct {
	Name        string
	VersionInfo string
	Locator     string // first externalRefs[].referenceLocator
}

// SPDXDocument is an SPDX 2.x document.
type SPDXDocument struct {
	SPDXVersion string
	Packages    []SPDXPackage
}

func (*SPDXDocument) Format() Format { return FormatSPDX }
func (*SPDXDocument) sealed() {}

// Inventory returns one entry per package.
func (d *SPDXDocument) Inventory() []domain.Software {
	out := make([]domain.Software, 0, len(d.Packages))
	for _, p := range d.Packages {
		out = append(out, domain.Software{Name: p.Name, Version: p.VersionInfo, PURL: p.Locator})
	}
	return out
}

// CycloneDXComponent is the subset of a CycloneDX 1.x component the analyzer needs.
type CycloneDXComponent struct {
	Name    string
	Version string
	PURL    string
}

// CycloneDXDocument is a CycloneDX 1.x document.
type CycloneDXDocument struct {
	SpecVersion string
	Components  []CycloneDXComponent
}

func (*CycloneDXDocument) Format() Format { return FormatCycloneDX }
func (*CycloneDXDocument) sealed() {}

// Inventory returns one entry per component.
func (d *CycloneDXDocument) Inventory() []domain.Software {
	out := make([]domain.Software, 0, len(d.Components))
	for _, c := range d.Components {
		out = append(out, domain.Software{Name: c.Name, Version: c.Version, PURL: c.PURL})
	}
	return out
}

// UnknownDocument is any tree without SPDX or CycloneDX markers. It has no components.
type UnknownDocument struct{}

func (*UnknownDocument) Format() Format { return FormatUnknown }
func (*UnknownDocument) Inventory() []domain.Software { return []domain.Software{} }
func (*UnknownDocument) sealed() {}

// Parse decodes a JSON or YAML SBOM and classifies it.
func Parse(data []byte) (Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var tree map[string]any
	if data[0] == '{' {
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to decode JSON SBOM: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to decode YAML SBOM: %w", err)
		}
	}

	return FromMap(tree), nil
}

// FromMap classifies a generic key-value tree by its top-level keys.
func FromMap(tree map[string]any) Document {
	if tree == nil {
		return &UnknownDocument{}
	}

	_, hasSPDXVersion := tree["spdxVersion"]
	_, hasSPDXID := tree["SPDXID"]
	if hasSPDXVersion || hasSPDXID {
		return spdxFromMap(tree)
	}

	_, hasBOMFormat := tree["bomFormat"]
	_, hasComponents := tree["components"]
	if hasBOMFormat || hasComponents {
		return cycloneDXFromMap(tree)
	}

	return &UnknownDocument{}
}

func spdxFromMap(tree map[string]any) *SPDXDocument {
	doc := &SPDXDocument{SPDXVersion: stringField(tree, "spdxVersion")}
	for _, raw := range listField(tree, "packages") {
		pkg, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		p := SPDXPackage{
			Name:        stringField(pkg, "name"),
			VersionInfo: stringField(pkg, "versionInfo"),
		}
		if refs := listField(pkg, "externalRefs"); len(refs) > 0 {
			if ref, ok := refs[0].(map[string]any); ok {
				p.Locator = stringField(ref, "referenceLocator")
			}
		}
		doc.Packages = append(doc.Packages, p)
	}
	return doc
}

func cycloneDXFromMap(tree map[string]any) *CycloneDXDocument {
	doc := &CycloneDXDocument{SpecVersion: stringField(tree, "specVersion")}
	for _, raw := range listField(tree, "components") {
		comp, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		doc.Components = append(doc.Components, CycloneDXComponent{
			Name:    stringField(comp, "name"),
			Version: stringField(comp, "version"),
			PURL:    stringField(comp, "purl"),
		})
	}
	return doc
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func listField(m map[string]any, key string) []any {
	list, _ := m[key].([]any)
	return list
}
