package chemverse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Composition is an element count list in order of first appearance.
type Composition struct {
	Order  []string
	Counts map[string]int
}

func newComposition() *Composition {
	return &Composition{Counts: make(map[string]int)}
}

// maxAtoms bounds the total count of any one element in a formula.
const maxAtoms = 1_000_000

func (c *Composition) add(el string, n int) error {
	if n > maxAtoms || c.Counts[el] > maxAtoms-n {
		return fmt.Errorf("%w: more than %d %s atoms", ErrBadFormula, maxAtoms, el)
	}
	if _, ok := c.Counts[el]; !ok {
		c.Order = append(c.Order, el)
	}
	c.Counts[el] += n
	return nil
}

// merge adds times copies of o, checking the product before multiplying.
func (c *Composition) merge(o *Composition, times int) error {
	for _, el := range o.Order {
		n := o.Counts[el]
		if times > 0 && n > maxAtoms/times {
			return fmt.Errorf("%w: more than %d %s atoms", ErrBadFormula, maxAtoms, el)
		}
		if err := c.add(el, n*times); err != nil {
			return err
		}
	}
	return nil
}

// hydrateSeparators split a formula into its parts, e.g. CuSO4·5H2O.
var hydrateSeparators = []string{"·", "•", "*", "."}

// ParseFormula parses formulas such as H2O, Ca(OH)2, K4[Fe(CN)6] and
// CuSO4·5H2O. Hydrate parts may carry a leading multiplier.
func ParseFormula(formula string) (*Composition, error) {
	s := strings.TrimSpace(formula)
	if s == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrBadFormula)
	}
	for _, sep := range hydrateSeparators[1:] {
		s = strings.ReplaceAll(s, sep, hydrateSeparators[0])
	}
	out := newComposition()
	for _, part := range strings.Split(s, hydrateSeparators[0]) {
		if part == "" {
			return nil, fmt.Errorf("%w: empty hydrate part in %q", ErrBadFormula, formula)
		}
		p := &parser{src: part}
		mult := p.number(1)
		comp, err := p.group(0)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", formula, err)
		}
		if p.bad {
			return nil, fmt.Errorf("%w: counts must be between 1 and %d in %q", ErrBadFormula, maxCount, formula)
		}
		if p.pos != len(p.src) {
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrBadFormula, p.src[p.pos:], formula)
		}
		if err := out.merge(comp, mult); err != nil {
			return nil, fmt.Errorf("%q: %w", formula, err)
		}
	}
	return out, nil
}

type parser struct {
	src string
	pos int
	bad bool
}

func (p *parser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

const maxCount = 100000

// number reads an optional positive integer, returning def when absent.
func (p *parser) number(def int) int {
	start := p.pos
	n := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		if n < maxCount {
			n = n*10 + int(p.src[p.pos]-'0')
		}
		p.pos++
	}
	if p.pos == start {
		return def
	}
	if n == 0 || n > maxCount {
		p.bad = true
		return def
	}
	return n
}

var closing = map[rune]rune{'(': ')', '[': ']', '{': '}'}

// group parses until the matching closer (or end of input when depth is 0).
func (p *parser) group(depth int) (*Composition, error) {
	comp := newComposition()
	for {
		r := p.peek()
		switch {
		case r == 0:
			if depth > 0 {
				return nil, fmt.Errorf("%w: unclosed bracket", ErrBadFormula)
			}
			if len(comp.Order) == 0 {
				return nil, fmt.Errorf("%w: no elements", ErrBadFormula)
			}
			return comp, nil
		case r == ')' || r == ']' || r == '}':
			if depth == 0 {
				return nil, fmt.Errorf("%w: unmatched %q", ErrBadFormula, r)
			}
			if len(comp.Order) == 0 {
				return nil, fmt.Errorf("%w: empty group", ErrBadFormula)
			}
			return comp, nil
		case closing[r] != 0:
			want := closing[r]
			p.pos++
			inner, err := p.group(depth + 1)
			if err != nil {
				return nil, err
			}
			if p.peek() != want {
				return nil, fmt.Errorf("%w: expected %q", ErrBadFormula, want)
			}
			p.pos++
			if err := comp.merge(inner, p.number(1)); err != nil {
				return nil, err
			}
		case unicode.IsUpper(r):
			start := p.pos
			p.pos++
			for unicode.IsLower(p.peek()) {
				p.pos++
			}
			sym := p.src[start:p.pos]
			if _, ok := atomicWeights[sym]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownElement, sym)
			}
			if err := comp.add(sym, p.number(1)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrBadFormula, r)
		}
	}
}
