package engine

import "github.com/shopspring/decimal"

type color uint8

const (
	red   color = 0
	black color = 1
)

type treeNode struct {
	key    decimal.Decimal
	level  *PriceLevel
	color  color
	left   *treeNode
	right  *treeNode
	parent *treeNode
}

// levelTree is a red-black tree of price levels keyed by price. It gives
// O(log P) intake and O(1)-amortized access to the best level on a side.
type levelTree struct {
	root *treeNode
	nil  *treeNode // sentinel (black)
	size int
}

func newLevelTree() *levelTree {
	nilNode := &treeNode{color: black}
	return &levelTree{
		root: nilNode,
		nil:  nilNode,
	}
}

func (t *levelTree) len() int { return t.size }

// upsert returns the level at price, creating it if absent.
func (t *levelTree) upsert(price decimal.Decimal) *PriceLevel {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		switch price.Cmp(x.key) {
		case -1:
			x = x.left
		case 1:
			x = x.right
		default:
			return x.level
		}
	}

	lvl := &PriceLevel{Price: price}
	z := &treeNode{
		key:    price,
		level:  lvl,
		color:  red,
		left:   t.nil,
		right:  t.nil,
		parent: y,
	}

	if y == t.nil {
		t.root = z
	} else if z.key.Cmp(y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return lvl
}

func (t *levelTree) delete(price decimal.Decimal) bool {
	z := t.search(price)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

// min returns the level with the lowest price, or nil when empty.
func (t *levelTree) min() *PriceLevel {
	n := t.minNode(t.root)
	if n == t.nil {
		return nil
	}
	return n.level
}

// max returns the level with the highest price, or nil when empty.
func (t *levelTree) max() *PriceLevel {
	n := t.maxNode(t.root)
	if n == t.nil {
		return nil
	}
	return n.level
}

func (t *levelTree) ascend(fn func(*PriceLevel) bool) {
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *levelTree) descend(fn func(*PriceLevel) bool) {
	for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *levelTree) search(price decimal.Decimal) *treeNode {
	n := t.root
	for n != t.nil {
		switch price.Cmp(n.key) {
		case -1:
			n = n.left
		case 1:
			n = n.right
		default:
			return n
		}
	}
	return t.nil
}

func (t *levelTree) minNode(n *treeNode) *treeNode {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *levelTree) maxNode(n *treeNode) *treeNode {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *levelTree) next(n *treeNode) *treeNode {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *levelTree) prev(n *treeNode) *treeNode {
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *levelTree) leftRotate(x *treeNode) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *levelTree) rightRotate(y *treeNode) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *levelTree) insertFixup(z *treeNode) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *levelTree) transplant(u, v *treeNode) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *levelTree) deleteNode(z *treeNode) {
	y := z
	yOrigColor := y.color
	var x *treeNode

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *levelTree) deleteFixup(x *treeNode) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
