package domain

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is one entry of a design-tool document tree.
type Node struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Type                string       `json:"type"`
	Visible             *bool        `json:"visible,omitempty"`
	AbsoluteBoundingBox *BoundingBox `json:"absoluteBoundingBox,omitempty"`
	Children            []Node       `json:"children,omitempty"`
}

// IsVisible treats a missing visibility flag as visible.
func (n Node) IsVisible() bool {
	return n.Visible == nil || *n.Visible
}

type DesignFile struct {
	Name         string `json:"name"`
	LastModified string `json:"lastModified,omitempty"`
	Version      string `json:"version,omitempty"`
	Document     Node   `json:"document"`
}

type FrameElement struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	BoundingBox BoundingBox `json:"boundingBox"`
	Depth       int         `json:"depth"`
}

type FrameRenderResult struct {
	FileID    string         `json:"fileId"`
	NodeID    string         `json:"nodeId"`
	FrameData Node           `json:"frameData"`
	Elements  []FrameElement `json:"elements"`
	ImageURL  string         `json:"imageUrl"`
	FileName  string         `json:"fileName"`
}

// FindNode walks the tree depth-first and returns the first node with id.
func FindNode(root Node, id string) (Node, bool) {
	if root.ID == id {
		return root, true
	}
	for _, child := range root.Children {
		if found, ok := FindNode(child, id); ok {
			return found, true
		}
	}
	return Node{}, false
}

// OverlayElements lists the visible descendants of frame that carry a
// bounding box, parent before children. Hidden nodes hide their subtree.
func OverlayElements(frame Node) []FrameElement {
	elements := make([]FrameElement, 0)
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, node := range nodes {
			if !node.IsVisible() {
				continue
			}
			if node.AbsoluteBoundingBox != nil {
				elements = append(elements, FrameElement{
					ID:          node.ID,
					Name:        node.Name,
					Type:        node.Type,
					BoundingBox: *node.AbsoluteBoundingBox,
					Depth:       depth,
				})
			}
			walk(node.Children, depth+1)
		}
	}
	walk(frame.Children, 1)
	return elements
}
