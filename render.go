package pdchain

import (
	"fmt"
	"strings"
)

// RenderChain serializes a chain to source text starting at the entry
// block. Rendering the same chain always yields the same text. A link
// outside the arena or a link cycle is a builder defect and panics.
func RenderChain(c *Chain) string {
	if c.Empty() {
		return ""
	}

	r := renderer{blocks: c.blocks}
	r.sequence(0, 0)

	return r.b.String()
}

// CodeLine formats rendered code for execution, optionally assigning it.
func CodeLine(target, rendered string) string {
	if target == "" {
		return rendered
	}

	return target + " = " + rendered
}

type renderer struct {
	blocks []Block
	b      strings.Builder
}

func (r *renderer) at(i int) Block {
	if i < 0 || i >= len(r.blocks) {
		panic(fmt.Sprintf("%v: index %d of %d", ErrDanglingLink, i, len(r.blocks)))
	}

	return r.blocks[i]
}

func (r *renderer) required(from, link int) {
	if link == NoLink {
		panic(fmt.Sprintf("%v: block %d is missing its operand", ErrDanglingLink, from))
	}
}

// sequence renders block i and everything reachable through Next.
func (r *renderer) sequence(i, depth int) {
	if depth > len(r.blocks) {
		panic(ErrCycle.Error())
	}

	for steps := 0; i != NoLink; steps++ {
		if steps > len(r.blocks) {
			panic(ErrCycle.Error())
		}

		blk := r.at(i)

		switch blk.Kind {
		case Bracket:
			r.required(i, blk.Child)
			r.b.WriteByte('[')
			r.sequence(blk.Child, depth+1)
			r.b.WriteByte(']')
		case Operator:
			r.required(i, blk.Left)
			r.sequence(blk.Left, depth+1)
			r.b.WriteByte(' ')
			r.b.WriteString(blk.Code)

			if blk.Right != NoLink {
				r.b.WriteByte(' ')
				r.sequence(blk.Right, depth+1)
			}
		default:
			r.b.WriteString(blk.Code)
		}

		i = blk.Next
	}
}
