package loader

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Named-entry sections of a kubeconfig
const (
	SectionClusters = "clusters"
	SectionUsers    = "users"
	SectionContexts = "contexts"
)

// Document is a kubeconfig held as a YAML node tree. Entries that are not
// edited are written back with their fields, order and comments as read.
type Document struct {
	node *yaml.Node
}

// NewDocument returns an empty v1 Config document
func NewDocument() *Document {
	d := &Document{node: &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
	}}
	d.setScalar("apiVersion", "v1")
	d.setScalar("kind", "Config")
	return d
}

// LoadDocument reads a kubeconfig file as a node tree
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig file: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses kubeconfig YAML. Empty or null input is an empty document.
func ParseDocument(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig YAML: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return NewDocument(), nil
	}

	root := node.Content[0]
	switch {
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return NewDocument(), nil
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("kubeconfig is not a YAML mapping")
	}
	return &Document{node: &node}, nil
}

// Render encodes the document with two-space indentation
func (d *Document) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.node); err != nil {
		return nil, fmt.Errorf("failed to render kubeconfig: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render kubeconfig: %w", err)
	}
	return buf.Bytes(), nil
}

// Entry returns the item named name in section
func (d *Document) Entry(section, name string) (*yaml.Node, bool) {
	seq := mappingValue(d.root(), section)
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return nil, false
	}
	for _, item := range seq.Content {
		if entryName(item) == name {
			return item, true
		}
	}
	return nil, false
}

// Names lists the entry names of section in file order
func (d *Document) Names(section string) []string {
	seq := mappingValue(d.root(), section)
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return nil
	}
	names := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		names = append(names, entryName(item))
	}
	return names
}

// Upsert replaces the item of section with the same name as entry, keeping the
// position of the first match and dropping later duplicates, or appends entry
// when there is none. It reports whether an item was replaced.
func (d *Document) Upsert(section string, entry *yaml.Node) bool {
	seq := d.sequence(section)
	name := entryName(entry)
	replaced := false
	kept := seq.Content[:0]
	for _, item := range seq.Content {
		if entryName(item) != name {
			kept = append(kept, item)
			continue
		}
		if !replaced {
			kept = append(kept, entry)
			replaced = true
		}
	}
	seq.Content = kept
	if replaced {
		return true
	}
	if len(seq.Content) == 0 {
		seq.Style = 0
	}
	seq.Content = append(seq.Content, entry)
	return false
}

// CurrentContext returns the current-context value, if any
func (d *Document) CurrentContext() string {
	if v := mappingValue(d.root(), "current-context"); v != nil && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

// SetCurrentContext sets current-context to name
func (d *Document) SetCurrentContext(name string) {
	d.setScalar("current-context", name)
}

// InlineData replaces the file reference pathKey in the field body of entry
// (for example "cluster" or "user") with base64 data under dataKey. It reports
// whether a reference was replaced.
func InlineData(entry *yaml.Node, field, pathKey, dataKey string, data []byte) bool {
	body := mappingValue(entry, field)
	if body == nil || body.Kind != yaml.MappingNode || len(data) == 0 {
		return false
	}
	if !deleteKey(body, pathKey) {
		return false
	}
	setMappingScalar(body, dataKey, base64.StdEncoding.EncodeToString(data))
	return true
}

func (d *Document) root() *yaml.Node {
	return d.node.Content[0]
}

// sequence returns the sequence under key, creating it when absent or null
func (d *Document) sequence(key string) *yaml.Node {
	root := d.root()
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key {
			continue
		}
		if root.Content[i+1].Kind != yaml.SequenceNode {
			root.Content[i+1] = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		}
		return root.Content[i+1]
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	root.Content = append(root.Content, scalar(key), seq)
	return seq
}

func (d *Document) setScalar(key, value string) {
	setMappingScalar(d.root(), key, value)
}

func setMappingScalar(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = scalar(value)
			return
		}
	}
	m.Content = append(m.Content, scalar(key), scalar(value))
}

func deleteKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return true
		}
	}
	return false
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func entryName(item *yaml.Node) string {
	if v := mappingValue(item, "name"); v != nil && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
