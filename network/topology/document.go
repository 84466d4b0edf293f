// Package topology translates the declarative topology document into the
// node's view of the overlay: a seed peer model, the discovery workers to
// spawn, and the class this node takes in membership decisions.
package topology

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the ingested topology document. Exactly one of the three
// top-level keys must be present.
type Document struct {
	Nodes  map[string]NodeEntry `yaml:"nodes,omitempty"`
	Wallet *WalletEntry         `yaml:"wallet,omitempty"`
	P2P    *P2PEntry            `yaml:"p2p,omitempty"`
}

// NodeEntry describes one node of a static topology.
type NodeEntry struct {
	Type         string     `yaml:"type"`
	Region       string     `yaml:"region,omitempty"`
	StaticRoutes [][]string `yaml:"static-routes,omitempty"`
	Addr         string     `yaml:"addr,omitempty"`
	Host         string     `yaml:"host,omitempty"`
	Port         uint16     `yaml:"port,omitempty"`
	Kademlia     *bool      `yaml:"kademlia,omitempty"`
}

// WalletEntry describes a wallet topology: a list of relay alternative
// groups, each member given by a literal address or a dns host.
type WalletEntry struct {
	Relays    [][]RelayAddr `yaml:"relays"`
	Valency   *uint16       `yaml:"valency,omitempty"`
	Fallbacks *uint16       `yaml:"fallbacks,omitempty"`
}

// RelayAddr is one relay endpoint of a wallet topology. Either Addr or Host
// is set, never both.
type RelayAddr struct {
	Addr string `yaml:"addr,omitempty"`
	Host string `yaml:"host,omitempty"`
	Port uint16 `yaml:"port"`
}

// P2PEntry describes a dht-discovered topology.
type P2PEntry struct {
	Variant   string  `yaml:"variant"`
	Valency   *uint16 `yaml:"valency,omitempty"`
	Fallbacks *uint16 `yaml:"fallbacks,omitempty"`
}

const (
	// VariantTraditional treats all dht members as core nodes.
	VariantTraditional = "traditional"
	// VariantNormal classifies this node as an edge and dht members as
	// relays.
	VariantNormal = "normal"
)

const (
	defaultWalletValency   uint16 = 1
	defaultWalletFallbacks uint16 = 1
	defaultP2PValency      uint16 = 3
	defaultP2PFallbacks    uint16 = 1
)

// ParseDocument strictly decodes a topology document and validates that
// exactly one top-level key is present.
func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, NewBadTopologyErrorf("could not decode topology document: %v", err)
	}

	present := 0
	if doc.Nodes != nil {
		present++
	}
	if doc.Wallet != nil {
		present++
	}
	if doc.P2P != nil {
		present++
	}
	if present != 1 {
		return nil, NewBadTopologyErrorf("expected exactly one of 'nodes', 'wallet', 'p2p'")
	}

	return &doc, nil
}

// Marshal serializes the document back to yaml. Parsing the output yields a
// document semantically equal to the original.
func (d *Document) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("could not marshal topology document: %w", err)
	}
	return out, nil
}
