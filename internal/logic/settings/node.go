package settings

// Kind is the widget type of a settings tree node.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindRange
	KindToggle
	KindRadio
	KindMenu
	KindDate
)

// String returns the lowercase type name used in serialized records.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindRange:
		return "range"
	case KindToggle:
		return "toggle"
	case KindRadio:
		return "radio"
	case KindMenu:
		return "menu"
	case KindDate:
		return "date"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

// Value is the kind-dependent payload of a node.
// The set of implementations is closed: Text, Range, Toggle, Choice and Date.
type Value interface {
	isValue()
}

// Text is the value of a text widget.
type Text string

// Range is the value of a slider widget together with its bounds.
type Range struct {
	Value float64
	Min   float64
	Max   float64
	Step  float64
}

// Toggle is the value of an on/off widget.
type Toggle bool

// Choice is the value of a radio or menu widget.
type Choice struct {
	Current string
	Choices []string
}

// Date is the value of a date widget, in Unix seconds.
type Date int64

func (Text) isValue()   {}
func (Range) isValue()  {}
func (Toggle) isValue() {}
func (Choice) isValue() {}
func (Date) isValue()   {}

// Node is one entry of a camera settings tree. A node owns its children;
// there are no parent links.
type Node struct {
	Name     string
	Label    string
	Kind     Kind
	Value    Value
	Children []*Node
}

// Add appends children to n and returns n.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Section returns a container node (a window or section in the device tree).
func Section(name, label string, children ...*Node) *Node {
	return &Node{Name: name, Label: label, Kind: KindUnknown, Children: children}
}

// NewText returns a text leaf.
func NewText(name, label, value string) *Node {
	return &Node{Name: name, Label: label, Kind: KindText, Value: Text(value)}
}

// NewRange returns a range leaf.
func NewRange(name, label string, value, min, max, step float64) *Node {
	return &Node{Name: name, Label: label, Kind: KindRange, Value: Range{Value: value, Min: min, Max: max, Step: step}}
}

// NewToggle returns a toggle leaf.
func NewToggle(name, label string, on bool) *Node {
	return &Node{Name: name, Label: label, Kind: KindToggle, Value: Toggle(on)}
}

// NewRadio returns a radio leaf.
func NewRadio(name, label, current string, choices ...string) *Node {
	return &Node{Name: name, Label: label, Kind: KindRadio, Value: Choice{Current: current, Choices: choices}}
}

// NewMenu returns a menu leaf.
func NewMenu(name, label, current string, choices ...string) *Node {
	return &Node{Name: name, Label: label, Kind: KindMenu, Value: Choice{Current: current, Choices: choices}}
}

// NewDate returns a date leaf.
func NewDate(name, label string, unix int64) *Node {
	return &Node{Name: name, Label: label, Kind: KindDate, Value: Date(unix)}
}
