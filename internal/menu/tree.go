// Package menu is the navigation hierarchy and cursor state machine of the panel.
package menu

import (
	"github.com/juju/errors"
)

// Action is opaque leaf token, published verbatim.
type Action string

// ActionUpdate is reserved token, runs update check instead of publish.
const ActionUpdate Action = "update"

// NodeID is stable index into Tree arena.
type NodeID int

const RootID NodeID = 0

// Spec describes menu shape before compilation into Tree.
type Spec struct {
	Label    string
	Action   Action
	Children []Spec
}

type node struct {
	label    string
	action   Action
	children []NodeID
}

// Tree is immutable after Build.
// Every node has children or action, never both, never neither.
type Tree struct {
	nodes []node
}

func Build(spec Spec) (*Tree, error) {
	if len(spec.Children) == 0 {
		return nil, errors.NotValidf("menu root=%s without children", spec.Label)
	}
	t := &Tree{nodes: make([]node, 0, 16)}
	if _, err := t.add(spec, spec.Label); err != nil {
		return nil, errors.Annotate(err, "menu build")
	}
	return t, nil
}

func MustBuild(spec Spec) *Tree {
	t, err := Build(spec)
	if err != nil {
		panic("code error " + err.Error())
	}
	return t
}

func (self *Tree) add(spec Spec, path string) (NodeID, error) {
	switch {
	case len(spec.Children) != 0 && spec.Action != "":
		return -1, errors.NotValidf("node=%s has both children and action", path)
	case len(spec.Children) == 0 && spec.Action == "":
		return -1, errors.NotValidf("node=%s dead end, no children and no action", path)
	}

	id := NodeID(len(self.nodes))
	self.nodes = append(self.nodes, node{label: spec.Label, action: spec.Action})
	if len(spec.Children) == 0 {
		return id, nil
	}
	children := make([]NodeID, 0, len(spec.Children))
	for _, child := range spec.Children {
		childID, err := self.add(child, path+"/"+child.Label)
		if err != nil {
			return -1, err
		}
		children = append(children, childID)
	}
	self.nodes[id].children = children
	return id, nil
}

func (self *Tree) Len() int { return len(self.nodes) }

func (self *Tree) Label(id NodeID) string        { return self.nodes[id].label }
func (self *Tree) Action(id NodeID) Action       { return self.nodes[id].action }
func (self *Tree) IsLeaf(id NodeID) bool         { return len(self.nodes[id].children) == 0 }
func (self *Tree) NumChildren(id NodeID) int     { return len(self.nodes[id].children) }
func (self *Tree) Child(id NodeID, i int) NodeID { return self.nodes[id].children[i] }

// Walk visits nodes depth first, parent before children.
func (self *Tree) Walk(fun func(id NodeID, depth int)) {
	var walk func(NodeID, int)
	walk = func(id NodeID, depth int) {
		fun(id, depth)
		for _, c := range self.nodes[id].children {
			walk(c, depth+1)
		}
	}
	walk(RootID, 0)
}

// DefaultSpec is the compiled-in panel menu.
func DefaultSpec() Spec {
	return Spec{
		Label: "Idle",
		Children: []Spec{
			{Label: "Office Sign", Children: []Spec{
				{Label: "Meeting", Action: "os-meeting"},
				{Label: "Focus", Action: "os-focus"},
				{Label: "Free", Action: "os-free"},
				{Label: "Lunch", Action: "os-lunch"},
				{Label: "Away", Action: "os-away"},
			}},
			{Label: "Update", Action: ActionUpdate},
		},
	}
}
