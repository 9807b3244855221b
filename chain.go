// Package pdchain builds pandas subscript/attribute expression chains from
// a flat column list and renders them to Python source.
//
// A chain is an arena of Blocks linked by integer index. Condition
// sub-chains are reached both through Next links inside themselves and as
// the Child of a Bracket, so links are indices rather than pointers.
package pdchain

import (
	"encoding/json"
	"fmt"
)

// NoLink marks the absence of a Next, Child, Left or Right link.
const NoLink = -1

// BlockKind is the role of a block in the chain.
type BlockKind int

// Block kinds.
const (
	Variable BlockKind = iota
	Code
	Bracket
	Operator
	Api
)

var blockKindNames = [...]string{
	Variable: "variable",
	Code:     "code",
	Bracket:  "bracket",
	Operator: "operator",
	Api:      "api",
}

func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}

	return fmt.Sprintf("BlockKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k BlockKind) MarshalText() ([]byte, error) {
	if int(k) >= len(blockKindNames) || k < 0 {
		return nil, fmt.Errorf("pdchain: unknown block kind %d", int(k))
	}

	return []byte(blockKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BlockKind) UnmarshalText(b []byte) error {
	for i, name := range blockKindNames {
		if name == string(b) {
			*k = BlockKind(i)
			return nil
		}
	}

	return fmt.Errorf("pdchain: unknown block kind %q", b)
}

// Block is a node in a chain.
type Block struct {
	// Code is the text this block contributes. Brackets carry "[]".
	Code string    `json:"code"`
	Kind BlockKind `json:"kind"`

	// Next is the block rendered immediately after this one.
	Next int `json:"next"`
	// Child is rendered inside a Bracket.
	Child int `json:"child"`
	// Left and Right are the operands of an Operator. Right may be NoLink.
	Left  int `json:"left"`
	Right int `json:"right"`
}

func newBlock(kind BlockKind, code string) Block {
	return Block{Code: code, Kind: kind, Next: NoLink, Child: NoLink, Left: NoLink, Right: NoLink}
}

// Chain is an immutable arena of blocks. Index 0 is the entry Variable
// block; an empty chain has no blocks and renders to "".
type Chain struct {
	blocks []Block
}

// NewChain wraps externally supplied blocks after validating them.
func NewChain(blocks []Block) (*Chain, error) {
	c := &Chain{blocks: append([]Block(nil), blocks...)}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Len returns the number of blocks.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}

	return len(c.blocks)
}

// Empty reports whether there is nothing to render.
func (c *Chain) Empty() bool { return c.Len() == 0 }

// Block returns the block at index i.
func (c *Chain) Block(i int) Block { return c.blocks[i] }

// Blocks returns a copy of the arena.
func (c *Chain) Blocks() []Block {
	if c == nil {
		return nil
	}

	return append([]Block(nil), c.blocks...)
}

// MarshalJSON encodes the chain as its block list.
func (c *Chain) MarshalJSON() ([]byte, error) {
	blocks := c.Blocks()
	if blocks == nil {
		blocks = []Block{}
	}

	return json.Marshal(blocks)
}

// UnmarshalJSON decodes and validates a block list.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}

	c.blocks = blocks

	return c.Validate()
}

// String renders the chain.
func (c *Chain) String() string { return RenderChain(c) }

// Validate checks that every link points inside the arena, that brackets
// and operators have their required operands, that index 0 is a Variable
// block, and that no link path revisits a block it came from.
func (c *Chain) Validate() error {
	if c.Empty() {
		return nil
	}

	if c.blocks[0].Kind != Variable {
		return ErrNoEntry
	}

	for i, b := range c.blocks {
		links := []struct {
			name     string
			idx      int
			required bool
		}{
			{"next", b.Next, false},
			{"child", b.Child, b.Kind == Bracket},
			{"left", b.Left, b.Kind == Operator},
			{"right", b.Right, false},
		}
		for _, l := range links {
			if l.idx == NoLink && !l.required {
				continue
			}

			if l.idx < 0 || l.idx >= len(c.blocks) {
				return fmt.Errorf("%w: block %d %s=%d", ErrDanglingLink, i, l.name, l.idx)
			}
		}
	}

	const (
		unseen = iota
		active
		done
	)

	state := make([]int, len(c.blocks))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case active:
			return fmt.Errorf("%w: at block %d", ErrCycle, i)
		case done:
			return nil
		}

		state[i] = active
		b := c.blocks[i]

		for _, next := range []int{b.Child, b.Left, b.Right, b.Next} {
			if next == NoLink {
				continue
			}

			if err := visit(next); err != nil {
				return err
			}
		}

		state[i] = done

		return nil
	}

	return visit(0)
}

// arena is the mutable form used while building.
type arena struct {
	blocks []Block
}

func (a *arena) add(b Block) int {
	a.blocks = append(a.blocks, b)
	return len(a.blocks) - 1
}

func (a *arena) link(from, to int) {
	a.blocks[from].Next = to
}

func (a *arena) bracket(child int) int {
	b := newBlock(Bracket, "[]")
	b.Child = child

	return a.add(b)
}

func (a *arena) operator(code string, left, right int) int {
	b := newBlock(Operator, code)
	b.Left, b.Right = left, right

	return a.add(b)
}

func (a *arena) freeze() *Chain {
	return &Chain{blocks: a.blocks}
}
