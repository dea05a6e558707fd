package settings

import (
	"strconv"

	"github.com/cjeanneret/boothcam/internal/debug"
)

// Catalog is the fixed list of settings reported by the config command.
// Camera models expose different subsets; absent names are skipped.
var Catalog = []string{
	"iso",
	"aperture",
	"shutterspeed",
	"shutterspeed2",
	"exposurecompensation",
	"whitebalance",
	"focusmode",
	"drivemode",
	"imageformat",
	"imagesize",
	"flashmode",
}

// Record is the serialized form of one setting.
type Record struct {
	Value   string   `json:"value"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Choices []string `json:"choices,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
}

// Find searches the tree rooted at root depth-first, pre-order, and returns
// the first node whose name equals name. The root itself is checked first.
// It returns nil when no node matches.
func Find(root *Node, name string) *Node {
	if root == nil {
		return nil
	}

	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Name == name {
			return n
		}

		// Push in reverse so the first child is visited next.
		for i := len(n.Children) - 1; i >= 0; i-- {
			if c := n.Children[i]; c != nil {
				stack = append(stack, c)
			}
		}
	}
	return nil
}

// ExtractValue formats the node's value as a string according to its kind.
// Text, radio and menu values are returned verbatim, ranges with one decimal,
// toggles as "true"/"false". Other kinds, or a value that does not match the
// kind, yield "".
func ExtractValue(n *Node) string {
	if n == nil {
		return ""
	}

	switch n.Kind {
	case KindText:
		if v, ok := n.Value.(Text); ok {
			return string(v)
		}
	case KindRadio, KindMenu:
		if v, ok := n.Value.(Choice); ok {
			return v.Current
		}
	case KindRange:
		if v, ok := n.Value.(Range); ok {
			return strconv.FormatFloat(v.Value, 'f', 1, 64)
		}
	case KindToggle:
		if v, ok := n.Value.(Toggle); ok {
			if v {
				return "true"
			}
			return "false"
		}
	case KindDate, KindUnknown:
	}
	return ""
}

// Describe builds the serialized record for a single node.
func Describe(n *Node) Record {
	rec := Record{
		Value: ExtractValue(n),
		Label: n.Label,
		Type:  n.Kind.String(),
	}

	switch n.Kind {
	case KindRadio, KindMenu:
		if v, ok := n.Value.(Choice); ok && len(v.Choices) > 0 {
			rec.Choices = append([]string(nil), v.Choices...)
		}
	case KindRange:
		var r Range
		if v, ok := n.Value.(Range); ok {
			r = v
		}
		rec.Min, rec.Max, rec.Step = &r.Min, &r.Max, &r.Step
	case KindText, KindToggle, KindDate, KindUnknown:
	}
	return rec
}

// Serialize looks up every name in the tree and returns the records of the
// ones that exist. Missing names produce no entry.
func Serialize(root *Node, names []string) map[string]Record {
	out := make(map[string]Record, len(names))
	for _, name := range names {
		n := Find(root, name)
		if n == nil {
			debug.Verbose("settings: %s not exposed by this camera", name)
			continue
		}
		out[name] = Describe(n)
	}
	return out
}
