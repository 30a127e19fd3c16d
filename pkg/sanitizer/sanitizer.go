// Package sanitizer normalises user supplied strings before validation. Every function
// is pure and safe to call on already-sanitised input.
package sanitizer

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}
