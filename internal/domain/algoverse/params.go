package algoverse

// SortParams is the input of every sorting generator.
type SortParams struct {
	Data []int `json:"data" validate:"required,min=1"`
}

// Size reports the input length.
func (p SortParams) Size() int { return len(p.Data) }

// SearchParams is the input of the search generators.
type SearchParams struct {
	Data   []int `json:"data" validate:"required,min=1"`
	Target int   `json:"target"`
}

// Size reports the input length.
func (p SearchParams) Size() int { return len(p.Data) }

// EdgeInput is one weighted edge.
type EdgeInput struct {
	From   string  `json:"from" validate:"required"`
	To     string  `json:"to" validate:"required"`
	Weight float64 `json:"weight"`
}

// GraphParams is the input of the graph generators. Edge weights default to 0
// and are ignored by BFS and DFS.
type GraphParams struct {
	Nodes    []string    `json:"nodes" validate:"required,min=1,dive,required"`
	Edges    []EdgeInput `json:"edges" validate:"dive"`
	Directed bool        `json:"directed"`
	Source   string      `json:"source" validate:"required"`
}

// Size reports nodes plus edges.
func (p GraphParams) Size() int { return len(p.Nodes) + len(p.Edges) }

// Traversal orders for TreeTraversal.
const (
	OrderIn    = "inorder"
	OrderPre   = "preorder"
	OrderPost  = "postorder"
	OrderLevel = "levelorder"
)

// TreeParams builds a binary search tree from Values and traverses it.
type TreeParams struct {
	Values []int  `json:"values" validate:"required,min=1"`
	Order  string `json:"order" validate:"omitempty,oneof=inorder preorder postorder levelorder"`
}

// Size reports the number of values.
func (p TreeParams) Size() int { return len(p.Values) }
