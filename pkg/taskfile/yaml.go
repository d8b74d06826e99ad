// SPDX-License-Identifier: MPL-2.0

package taskfile

import (
	"gopkg.in/yaml.v3"
)

func parseYAML(data []byte, _ string) (map[string]any, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, err
	}

	doc := map[string]any{}
	if root.Kind == 0 {
		return doc, nil, nil
	}
	if err := root.Decode(&doc); err != nil {
		return nil, nil, err
	}
	return doc, yamlTaskOrder(&root), nil
}

// yamlTaskOrder reads the key order of the top-level tasks mapping, following
// aliases and merge keys.
func yamlTaskOrder(root *yaml.Node) []string {
	n := root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "tasks" {
			return mappingKeys(n.Content[i+1], 0)
		}
	}
	return nil
}

func mappingKeys(n *yaml.Node, depth int) []string {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.MappingNode || depth > 32 {
		return nil
	}

	var keys, merged []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Tag == "!!merge" || k.Value == "<<" {
			if v.Kind == yaml.SequenceNode {
				for _, m := range v.Content {
					merged = append(merged, mappingKeys(m, depth+1)...)
				}
			} else {
				merged = append(merged, mappingKeys(v, depth+1)...)
			}
			continue
		}
		keys = append(keys, k.Value)
	}
	return append(keys, merged...)
}
