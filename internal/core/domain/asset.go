package domain

import (
	"fmt"
	"strings"
)

// AssetType is the closed set of inventory asset kinds.
type AssetType string

const (
	AssetServer        AssetType = "server"
	AssetWorkstation   AssetType = "workstation"
	AssetNetworkDevice AssetType = "network_device"
	AssetContainer     AssetType = "container"
	AssetVM            AssetType = "vm"
)

// ParseAssetType normalizes s to lower case and checks it against the known types.
func ParseAssetType(s string) (AssetType, error) {
	t := AssetType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case AssetServer, AssetWorkstation, AssetNetworkDevice, AssetContainer, AssetVM:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAssetType, s)
}

// Criticality expresses the business importance of an asset.
type Criticality string

const (
	CriticalityLow      Criticality = "LOW"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityCritical Criticality = "CRITICAL"
)

// ParseCriticality normalizes s to upper case and checks it against the known levels.
func ParseCriticality(s string) (Criticality, error) {
	c := Criticality(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCriticality, s)
}

// Weight maps the criticality onto the 0-10 scale used by asset risk scoring.
func (c Criticality) Weight() float64 {
	switch Criticality(strings.ToUpper(string(c))) {
	case CriticalityLow:
		return 2.5
	case CriticalityMedium:
		return 5.0
	case CriticalityHigh:
		return 7.5
	case CriticalityCritical:
		return 10.0
	default:
		return 0
	}
}

// Software is an installed package on an asset, or a component of an SBOM.
type Software struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	PURL    string `json:"purl,omitempty"`
}

// Asset is an inventory item whose exposure is scored against threat indicators.
type Asset struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Type              AssetType   `json:"type"`
	IPAddresses       []string    `json:"ip_addresses,omitempty"`
	InstalledSoftware []Software  `json:"installed_software,omitempty"`
	Criticality       Criticality `json:"criticality"`
}

// NewAsset normalizes the enumerated fields of an asset and validates them.
func NewAsset(a Asset) (Asset, error) {
	t, err := ParseAssetType(string(a.Type))
	if err != nil {
		return Asset{}, err
	}
	c, err := ParseCriticality(string(a.Criticality))
	if err != nil {
		return Asset{}, err
	}
	a.Type = t
	a.Criticality = c
	return a, nil
}

// HasIP reports whether ip is one of the asset's addresses.
func (a Asset) HasIP(ip string) bool {
	for _, addr := range a.IPAddresses {
		if addr == ip {
			return true
		}
	}
	return false
}
