// Package poco converts Unity Poco hierarchy dumps into element trees so
// they can be browsed, hit tested and highlighted like accessibility trees.
package poco

import (
	"math"
	"strconv"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
)

// DefaultPort is the port the Poco SDK listens on inside a Unity app.
const DefaultPort = 5001

// Node is one entry of a Poco hierarchy dump.
type Node struct {
	Name     string  `json:"name"               yaml:"name"`
	Payload  Payload `json:"payload"            yaml:"payload"`
	Children []Node  `json:"children,omitempty" yaml:"children,omitempty"`
}

// Payload carries a node's attributes. Pos, Size and AnchorPoint are
// normalised to the screen: (0,0) is the top-left corner, (1,1) the
// bottom-right.
type Payload struct {
	Name        string     `json:"name"        yaml:"name"`
	Type        string     `json:"type"        yaml:"type"`
	Visible     bool       `json:"visible"     yaml:"visible"`
	Pos         [2]float64 `json:"pos"         yaml:"pos"`
	Size        [2]float64 `json:"size"        yaml:"size"`
	AnchorPoint [2]float64 `json:"anchorPoint" yaml:"anchorPoint"`
	ZOrders     ZOrders    `json:"zOrders"     yaml:"zOrders"`
}

// ZOrders is a node's draw order globally and among its siblings.
type ZOrders struct {
	Global float64 `json:"global" yaml:"global"`
	Local  float64 `json:"local"  yaml:"local"`
}

// Box converts the normalised position into a logical box on a screen of
// the given size. Pos marks the anchor point, so the top-left corner is
// pos - size*anchor.
func (p Payload) Box(screen geometry.Size) geometry.Box {
	left := (p.Pos[0] - p.Size[0]*p.AnchorPoint[0]) * screen.Width
	top := (p.Pos[1] - p.Size[1]*p.AnchorPoint[1]) * screen.Height
	return geometry.Box{
		X:      int(math.Round(left)),
		Y:      int(math.Round(top)),
		Width:  int(math.Round(p.Size[0] * screen.Width)),
		Height: int(math.Round(p.Size[1] * screen.Height)),
	}
}

// Elements converts a dump rooted at root into a single-rooted element tree.
// Labels are node names; the detail bag holds the payload with the box in
// logical points, so model hit testing and highlighting apply unchanged.
// IDs are assigned in document order starting at 1.
func Elements(root Node, screen geometry.Size) []model.Element {
	nextID := 1
	roots := []model.Element{convert(root, screen, &nextID)}
	model.AssignXPaths(roots)
	return roots
}

func convert(n Node, screen geometry.Size, nextID *int) model.Element {
	box := n.Payload.Box(screen)
	name := n.Payload.Name
	if name == "" {
		name = n.Name
	}
	el := model.Element{
		ID:    *nextID,
		Label: n.Name,
		Detail: model.Detail{
			model.AttrName:   name,
			model.AttrType:   n.Payload.Type,
			"visible":        strconv.FormatBool(n.Payload.Visible),
			model.AttrX:      strconv.Itoa(box.X),
			model.AttrY:      strconv.Itoa(box.Y),
			model.AttrWidth:  strconv.Itoa(box.Width),
			model.AttrHeight: strconv.Itoa(box.Height),
			"zOrderGlobal":   formatFloat(n.Payload.ZOrders.Global),
			"zOrderLocal":    formatFloat(n.Payload.ZOrders.Local),
		},
	}
	*nextID++
	for _, child := range n.Children {
		el.Children = append(el.Children, convert(child, screen, nextID))
	}
	return el
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
