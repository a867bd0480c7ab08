package taxonomy

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// locate walks the decoded YAML node tree along a JSON pointer and returns
// the line and column of the deepest node it can reach. When a pointer
// segment cannot be followed (e.g. a missing required property) the
// position of the enclosing node is returned.
func locate(node *yaml.Node, pointer string) (line, col int) {
	if node == nil {
		return 1, 1
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if pointer == "" {
		return node.Line, node.Column
	}

	for _, segment := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")

		next := follow(node, segment)
		if next == nil {
			break
		}
		node = next
	}
	return node.Line, node.Column
}

func follow(node *yaml.Node, segment string) *yaml.Node {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == segment {
				return node.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		index, err := strconv.Atoi(segment)
		if err == nil && index >= 0 && index < len(node.Content) {
			return node.Content[index]
		}
	case yaml.AliasNode:
		return follow(node.Alias, segment)
	}
	return nil
}
