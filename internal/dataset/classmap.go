package dataset

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
	"github.com/rs/zerolog/log"
)

// MapKind says which mapping a class map file carried.
type MapKind string

const (
	KindLabelToClass MapKind = "label_to_class"
	KindClassToColor MapKind = "class_to_color"
)

// ClassMap is the resolved class mapping of a dataset. Classes holds the class
// names in label order. Exactly one of LabelToClass and ClassToColor is set,
// as selected by Kind.
type ClassMap struct {
	Kind         MapKind              `json:"kind"`
	Classes      []string             `json:"classes"`
	LabelToClass map[int]string       `json:"label_to_class,omitempty"`
	ClassToColor map[string][]float64 `json:"class_to_color,omitempty"`
}

func (m *ClassMap) NumClasses() int {
	return len(m.Classes)
}

// ClassName returns the name for a label, or "" when the label is unknown.
func (m *ClassMap) ClassName(label int) string {
	if m.Kind == KindLabelToClass {
		if name, ok := m.LabelToClass[label]; ok {
			return name
		}
	}
	if label >= 0 && label < len(m.Classes) {
		return m.Classes[label]
	}
	return ""
}

func (m *ClassMap) Color(class string) ([]float64, bool) {
	c, ok := m.ClassToColor[class]
	return c, ok
}

// LoadClassMap reads and resolves a class map file.
func LoadClassMap(path string) (*ClassMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class map: %w", err)
	}
	m, err := ParseClassMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("kind", string(m.Kind)).Int("classes", m.NumClasses()).Msg("loaded class map")
	return m, nil
}

// ParseClassMap accepts either [class_labels, mapping, ...extra] or a plain
// class→color object. Extra trailing array elements are logged and dropped.
func ParseClassMap(raw []byte) (*ClassMap, error) {
	root, err := sonic.Get(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}
	if err := root.LoadAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}

	switch root.TypeSafe() {
	case ast.V_ARRAY:
		return parseTupleMap(&root)
	case ast.V_OBJECT:
		colors, order, err := parseColors(&root)
		if err != nil {
			return nil, err
		}
		return &ClassMap{Kind: KindClassToColor, Classes: order, ClassToColor: colors}, nil
	}
	return nil, fmt.Errorf("%w: top level must be an array or an object", ErrInvalidClassMap)
}

func parseTupleMap(root *ast.Node) (*ClassMap, error) {
	elems, err := root.ArrayUseNode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}
	if len(elems) < 2 {
		return nil, fmt.Errorf("%w: want [class_labels, mapping], got %d elements", ErrInvalidClassMap, len(elems))
	}
	if len(elems) > 2 {
		for i := 2; i < len(elems); i++ {
			extra, _ := elems[i].Raw()
			log.Warn().Int("position", i).Str("value", extra).Msg("ignoring extra data in class map")
		}
	}

	classes, err := parseClassLabels(&elems[0])
	if err != nil {
		return nil, err
	}

	mapping := &elems[1]
	if mapping.TypeSafe() != ast.V_OBJECT {
		return nil, fmt.Errorf("%w: mapping must be an object", ErrInvalidClassMap)
	}

	kind, err := mappingKind(mapping)
	if err != nil {
		return nil, err
	}
	m := &ClassMap{Kind: kind, Classes: classes}
	if kind == KindClassToColor {
		m.ClassToColor, _, err = parseColors(mapping)
	} else {
		m.LabelToClass, err = parseLabelToClass(mapping)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parseClassLabels(n *ast.Node) ([]string, error) {
	if n.TypeSafe() != ast.V_ARRAY {
		return nil, fmt.Errorf("%w: class labels must be an array", ErrInvalidClassMap)
	}
	it, err := n.Values()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}
	var labels []string
	var v ast.Node
	for it.Next(&v) {
		s, err := v.String()
		if err != nil {
			return nil, fmt.Errorf("%w: class label %d: %v", ErrInvalidClassMap, len(labels), err)
		}
		labels = append(labels, s)
	}
	return labels, nil
}

// mappingKind looks at the value types: strings mean label→class, arrays mean
// class→color. An empty mapping counts as label→class.
func mappingKind(n *ast.Node) (MapKind, error) {
	it, err := n.Properties()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}
	kind := MapKind("")
	var p ast.Pair
	for it.Next(&p) {
		var k MapKind
		switch p.Value.TypeSafe() {
		case ast.V_STRING:
			k = KindLabelToClass
		case ast.V_ARRAY:
			k = KindClassToColor
		default:
			return "", fmt.Errorf("%w: mapping value for %q must be a class name or a color", ErrInvalidClassMap, p.Key)
		}
		if kind != "" && kind != k {
			return "", fmt.Errorf("%w: mapping mixes class names and colors", ErrInvalidClassMap)
		}
		kind = k
	}
	if kind == "" {
		kind = KindLabelToClass
	}
	return kind, nil
}

func parseLabelToClass(n *ast.Node) (map[int]string, error) {
	it, err := n.Properties()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}
	out := make(map[int]string)
	var p ast.Pair
	for it.Next(&p) {
		label, err := strconv.Atoi(p.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: label key %q is not an integer", ErrInvalidClassMap, p.Key)
		}
		name, err := p.Value.String()
		if err != nil {
			return nil, fmt.Errorf("%w: label %d: %v", ErrInvalidClassMap, label, err)
		}
		out[label] = name
	}
	return out, nil
}

// parseColors returns the class→color mapping and the classes in file order.
func parseColors(n *ast.Node) (map[string][]float64, []string, error) {
	it, err := n.Properties()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
	}
	colors := make(map[string][]float64)
	var order []string
	var p ast.Pair
	for it.Next(&p) {
		if p.Value.TypeSafe() != ast.V_ARRAY {
			return nil, nil, fmt.Errorf("%w: color for %q must be an array", ErrInvalidClassMap, p.Key)
		}
		values, err := p.Value.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidClassMap, err)
		}
		var color []float64
		var v ast.Node
		for values.Next(&v) {
			f, err := v.Float64()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: color for %q: %v", ErrInvalidClassMap, p.Key, err)
			}
			color = append(color, f)
		}
		colors[p.Key] = color
		order = append(order, p.Key)
	}
	return colors, order, nil
}
