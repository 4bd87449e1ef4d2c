package ast

import (
	"gitlab.com/tozd/go/errors"
)

var ErrInvalidPath = errors.New("invalid node path")

// Path addresses a node by child indexes from the root.
type Path []int

func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Path) Append(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// At returns the node at path, or nil when the path leaves the tree.
func At(root *Node, path Path) *Node {
	cur := root
	for _, i := range path {
		cur = cur.Child(i)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// children of the visited node.
func Walk(root *Node, fn func(n *Node, path Path) bool) {
	walk(root, nil, fn)
}

func walk(n *Node, path Path, fn func(*Node, Path) bool) {
	if n == nil {
		return
	}
	if !fn(n, path) {
		return
	}
	for i, c := range n.children {
		walk(c, path.Append(i), fn)
	}
}

// Replace returns a new tree with the node at path swapped for repl. Only the
// ancestors on the path are copied; the replacement takes over the region of
// the text the old node occupied.
func Replace(root *Node, path Path, repl *Node) (*Node, error) {
	if root == nil {
		return nil, errors.WithStack(ErrInvalidPath)
	}
	if len(path) == 0 {
		return occupy(repl, root), nil
	}
	i := path[0]
	child := root.Child(i)
	if child == nil {
		return nil, errors.Errorf("%w: no child %d under %s", ErrInvalidPath, i, root)
	}
	next, err := Replace(child, path[1:], repl)
	if err != nil {
		return nil, err
	}
	return root.WithChild(i, next), nil
}

// ReplaceInList swaps the node at path for zero or more siblings. Removing a
// node leaves an Empty in its place so the surrounding text stays aligned.
func ReplaceInList(root *Node, path Path, repl []*Node) (*Node, error) {
	if len(path) == 0 {
		return nil, errors.Errorf("%w: the root is not in a list", ErrInvalidPath)
	}
	parent := At(root, path.Parent())
	idx := path[len(path)-1]
	old := parent.Child(idx)
	if old == nil {
		return nil, errors.Errorf("%w: no child %d under %s", ErrInvalidPath, idx, parent)
	}
	if len(repl) == 0 {
		repl = []*Node{Empty()}
	}
	children := make([]*Node, 0, parent.Len()+len(repl)-1)
	children = append(children, parent.children[:idx]...)
	for _, r := range repl {
		children = append(children, occupy(r, old))
	}
	children = append(children, parent.children[idx+1:]...)
	return Replace(root, path.Parent(), parent.WithChildren(children...))
}

func occupy(repl, old *Node) *Node {
	if repl == nil {
		return nil
	}
	if old != nil && old.hasSlot {
		return repl.withSlot(old.slot)
	}
	return repl
}
