package algoverse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/okian/visualverse/internal/domain/frame"
)

type bstNode struct {
	val         int
	left, right *bstNode
}

func (n *bstNode) id() string { return strconv.Itoa(n.val) }

// insert adds v and reports whether it was new; duplicates are ignored.
func (n *bstNode) insert(v int) bool {
	cur := n
	for {
		switch {
		case v == cur.val:
			return false
		case v < cur.val:
			if cur.left == nil {
				cur.left = &bstNode{val: v}
				return true
			}
			cur = cur.left
		default:
			if cur.right == nil {
				cur.right = &bstNode{val: v}
				return true
			}
			cur = cur.right
		}
	}
}

func (n *bstNode) height() int {
	if n == nil {
		return 0
	}
	return 1 + max(n.left.height(), n.right.height())
}

// TreeTraversal builds a binary search tree from the values in order and
// animates the requested traversal (inorder by default).
func TreeTraversal(ctx context.Context, p TreeParams, opts ...Option) (*frame.Sequence[frame.Graph], error) {
	if len(p.Values) == 0 {
		return nil, ErrEmptyInput
	}
	order := p.Order
	if order == "" {
		order = OrderIn
	}
	switch order {
	case OrderIn, OrderPre, OrderPost, OrderLevel:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrder, order)
	}

	root := &bstNode{val: p.Values[0]}
	nodes := []string{root.id()}
	duplicates := 0
	for _, v := range p.Values[1:] {
		if root.insert(v) {
			nodes = append(nodes, strconv.Itoa(v))
		} else {
			duplicates++
		}
	}

	g := &graph{nodes: nodes, adj: make(map[string][]frame.Edge, len(nodes))}
	collectEdges(root, g)

	t := newTraversal(ctx, "tree_traversal", "Binary tree "+order+" traversal", g, buildOptions(opts))
	t.rec.Set("height", float64(root.height()))
	t.rec.Set("duplicates", float64(duplicates))
	t.rec.Explain("Inserted %d distinct values into a binary search tree of height %d.", len(nodes), root.height())
	if err := t.emit(frame.ActionInit, root.id(), nil, "Tree built, root is "+root.id()); err != nil {
		return nil, err
	}

	w := &treeWalker{t: t}
	var err error
	switch order {
	case OrderIn:
		t.rec.Explain("Inorder visits left subtree, node, right subtree; on a BST this yields sorted order.")
		err = w.inorder(root)
	case OrderPre:
		t.rec.Explain("Preorder visits node, left subtree, right subtree.")
		err = w.preorder(root)
	case OrderPost:
		t.rec.Explain("Postorder visits left subtree, right subtree, node.")
		err = w.postorder(root)
	case OrderLevel:
		t.rec.Explain("Level order visits nodes breadth-first using a queue.")
		err = w.levelorder(root)
	}
	if err != nil {
		return nil, err
	}
	if err := t.emit(frame.ActionDone, "", nil, "Traversal complete"); err != nil {
		return nil, err
	}
	return t.finish(), nil
}

func collectEdges(n *bstNode, g *graph) {
	for _, c := range []*bstNode{n.left, n.right} {
		if c == nil {
			continue
		}
		e := frame.Edge{From: n.id(), To: c.id(), Weight: 1}
		g.edges = append(g.edges, e)
		g.adj[n.id()] = append(g.adj[n.id()], e)
		collectEdges(c, g)
	}
}

type treeWalker struct {
	t *traversal
}

func (w *treeWalker) visit(n *bstNode) error {
	w.t.states[n.id()] = frame.StateCurrent
	w.t.order = append(w.t.order, n.id())
	if err := w.t.emit(frame.ActionVisit, n.id(), nil, "Visit "+n.id()); err != nil {
		return err
	}
	w.t.states[n.id()] = frame.StateVisited
	return nil
}

func (w *treeWalker) inorder(n *bstNode) error {
	if n == nil {
		return nil
	}
	if err := w.inorder(n.left); err != nil {
		return err
	}
	if err := w.visit(n); err != nil {
		return err
	}
	return w.inorder(n.right)
}

func (w *treeWalker) preorder(n *bstNode) error {
	if n == nil {
		return nil
	}
	if err := w.visit(n); err != nil {
		return err
	}
	if err := w.preorder(n.left); err != nil {
		return err
	}
	return w.preorder(n.right)
}

func (w *treeWalker) postorder(n *bstNode) error {
	if n == nil {
		return nil
	}
	if err := w.postorder(n.left); err != nil {
		return err
	}
	if err := w.postorder(n.right); err != nil {
		return err
	}
	return w.visit(n)
}

func (w *treeWalker) levelorder(root *bstNode) error {
	queue := []*bstNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		w.t.frontier = w.t.frontier[:0]
		for _, c := range []*bstNode{n.left, n.right} {
			if c != nil {
				queue = append(queue, c)
			}
		}
		for _, q := range queue {
			w.t.frontier = append(w.t.frontier, q.id())
		}
		if err := w.visit(n); err != nil {
			return err
		}
	}
	w.t.frontier = nil
	return nil
}
