package sbom

import (
	"testing"

	"github.com/lcalzada-xor/threatcorr/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spdxJSON = `{
  "spdxVersion": "SPDX-2.3",
  "SPDXID": "SPDXRef-DOCUMENT",
  "packages": [
    {
      "name": "openssl",
      "versionInfo": "1.1.1k",
      "externalRefs": [
        {"referenceType": "purl", "referenceLocator": "pkg:generic/openssl@1.1.1k"},
        {"referenceType": "cpe23Type", "referenceLocator": "cpe:2.3:a:openssl:openssl:1.1.1k"}
      ]
    },
    {"name": "zlib", "versionInfo": "1.2.11"},
    "not-a-package"
  ]
}`

const cycloneDXYAML = `
bomFormat: CycloneDX
specVersion: "1.5"
components:
  - name: jackson-databind
    version: 2.9.10
    purl: pkg:maven/com.fasterxml.jackson.core/jackson-databind@2.9.10
  - name: guava
    version: "30.1"
`

func TestParse_SPDX(t *testing.T) {
	doc, err := Parse([]byte(spdxJSON))
	require.NoError(t, err)

	spdx, ok := doc.(*SPDXDocument)
	require.True(t, ok, "expected SPDX document, got %T", doc)
	assert.Equal(t, FormatSPDX, doc.Format())
	assert.Equal(t, "SPDX-2.3", spdx.SPDXVersion)
	assert.Equal(t, []domain.Software{
		{Name: "openssl", Version: "1.1.1k", PURL: "pkg:generic/openssl@1.1.1k"},
		{Name: "zlib", Version: "1.2.11"},
	}, doc.Inventory())
}

func TestParse_CycloneDXYAML(t *testing.T) {
	doc, err := Parse([]byte(cycloneDXYAML))
	require.NoError(t, err)

	cdx, ok := doc.(*CycloneDXDocument)
	require.True(t, ok, "expected CycloneDX document, got %T", doc)
	assert.Equal(t, "1.5", cdx.SpecVersion)
	assert.Equal(t, []domain.Software{
		{Name: "jackson-databind", Version: "2.9.10", PURL: "pkg:maven/com.fasterxml.jackson.core/jackson-databind@2.9.10"},
		{Name: "guava", Version: "30.1"},
	}, doc.Inventory())
}

func TestFromMap_Detection(t *testing.T) {
	tests := []struct {
		name string
		tree map[string]any
		want Format
	}{
		{"spdxVersion key", map[string]any{"spdxVersion": "SPDX-2.2"}, FormatSPDX},
		{"SPDXID key", map[string]any{"SPDXID": "SPDXRef-DOCUMENT"}, FormatSPDX},
		{"bomFormat key", map[string]any{"bomFormat": "CycloneDX"}, FormatCycloneDX},
		{"components key only", map[string]any{"components": []any{}}, FormatCycloneDX},
		{"no markers", map[string]any{"packages": []any{}}, FormatUnknown},
		{"nil tree", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromMap(tt.tree).Format())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("   "))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = Parse([]byte(`{"spdxVersion": `))
	assert.Error(t, err)

	_, err = Parse([]byte("- a\n- b\n"))
	assert.Error(t, err, "a top-level sequence is not a document")
}
