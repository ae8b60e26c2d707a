package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Node is one value of a profile document: a mapping, a sequence or a scalar.
// Only the field matching Kind is meaningful.
type Node struct {
	kind     Kind
	scalar   any
	mapping  map[string]*Node
	sequence []*Node
}

func Scalar(value any) *Node {
	return &Node{kind: KindScalar, scalar: value}
}

func Mapping(fields map[string]*Node) *Node {
	if fields == nil {
		fields = make(map[string]*Node)
	}
	return &Node{kind: KindMapping, mapping: fields}
}

func Sequence(items ...*Node) *Node {
	return &Node{kind: KindSequence, sequence: items}
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) IsContainer() bool { return n.kind != KindScalar }

// Value returns the raw scalar, nil for containers.
func (n *Node) Value() any {
	if n.kind != KindScalar {
		return nil
	}
	return n.scalar
}

// String renders a scalar for display. Containers and null render empty.
func (n *Node) String() string {
	if n == nil || n.kind != KindScalar || n.scalar == nil {
		return ""
	}
	switch v := n.scalar.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (n *Node) Field(key string) (*Node, bool) {
	if n.kind != KindMapping {
		return nil, false
	}
	child, ok := n.mapping[key]
	return child, ok
}

func (n *Node) Index(i int) (*Node, bool) {
	if n.kind != KindSequence || i < 0 || i >= len(n.sequence) {
		return nil, false
	}
	return n.sequence[i], true
}

func (n *Node) Len() int {
	switch n.kind {
	case KindMapping:
		return len(n.mapping)
	case KindSequence:
		return len(n.sequence)
	default:
		return 0
	}
}

// Keys returns the mapping keys in sorted order.
func (n *Node) Keys() []string {
	if n.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(n.mapping))
	for k := range n.mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy sharing no containers with n.
func (n *Node) Clone() *Node {
	switch n.kind {
	case KindMapping:
		fields := make(map[string]*Node, len(n.mapping))
		for k, v := range n.mapping {
			fields[k] = v.Clone()
		}
		return Mapping(fields)
	case KindSequence:
		items := make([]*Node, len(n.sequence))
		for i, v := range n.sequence {
			items[i] = v.Clone()
		}
		return Sequence(items...)
	default:
		return Scalar(n.scalar)
	}
}

// Lookup resolves a dotted path such as "emergency.0.phone".
func (n *Node) Lookup(path string) (*Node, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	cursor := n
	for _, seg := range segments {
		cursor, err = cursor.child(path, seg)
		if err != nil {
			return nil, err
		}
	}
	return cursor, nil
}

// Set overwrites the scalar leaf addressed by path. Missing intermediate
// structure is never created and containers are never replaced.
func (n *Node) Set(path string, value any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	cursor := n
	for _, seg := range segments[:len(segments)-1] {
		cursor, err = cursor.child(path, seg)
		if err != nil {
			return err
		}
	}

	last := segments[len(segments)-1]
	leaf, err := cursor.child(path, last)
	if err != nil {
		return err
	}
	if leaf.IsContainer() {
		return &PathError{Path: path, Segment: last, Reason: "addresses a " + leaf.kind.String() + ", not a field"}
	}

	switch cursor.kind {
	case KindMapping:
		cursor.mapping[last] = Scalar(value)
	case KindSequence:
		idx, _ := strconv.Atoi(last)
		cursor.sequence[idx] = Scalar(value)
	}
	return nil
}

func (n *Node) child(path, seg string) (*Node, error) {
	switch n.kind {
	case KindMapping:
		if isIndex(seg) {
			return nil, &PathError{Path: path, Segment: seg, Reason: "numeric segment on a mapping"}
		}
		child, ok := n.mapping[seg]
		if !ok {
			return nil, &PathError{Path: path, Segment: seg, Reason: "no such key"}
		}
		return child, nil
	case KindSequence:
		if !isIndex(seg) {
			return nil, &PathError{Path: path, Segment: seg, Reason: "non-numeric segment on a sequence"}
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx >= len(n.sequence) {
			return nil, &PathError{Path: path, Segment: seg, Reason: "index out of range"}
		}
		return n.sequence[idx], nil
	default:
		return nil, &PathError{Path: path, Segment: seg, Reason: "parent is not a container"}
	}
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, &PathError{Path: path, Reason: "empty path"}
	}
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if seg == "" {
			return nil, &PathError{Path: path, Reason: "empty segment"}
		}
	}
	return segments, nil
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Interface converts the tree to plain maps, slices and scalars.
func (n *Node) Interface() any {
	switch n.kind {
	case KindMapping:
		out := make(map[string]any, len(n.mapping))
		for k, v := range n.mapping {
			out[k] = v.Interface()
		}
		return out
	case KindSequence:
		out := make([]any, len(n.sequence))
		for i, v := range n.sequence {
			out[i] = v.Interface()
		}
		return out
	default:
		return n.scalar
	}
}

// FromInterface builds a tree from decoded JSON values.
func FromInterface(v any) (*Node, error) {
	switch val := v.(type) {
	case map[string]any:
		fields := make(map[string]*Node, len(val))
		for k, item := range val {
			child, err := FromInterface(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			fields[k] = child
		}
		return Mapping(fields), nil
	case []any:
		items := make([]*Node, len(val))
		for i, item := range val {
			child, err := FromInterface(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = child
		}
		return Sequence(items...), nil
	case nil, string, bool, float64:
		return Scalar(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return Scalar(f), nil
	case int:
		return Scalar(float64(val)), nil
	case int64:
		return Scalar(float64(val)), nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Interface())
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	node, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*n = *node
	return nil
}
