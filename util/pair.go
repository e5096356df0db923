package util

// Pair is a 2-tuple. It mostly shows up when building record fields,
// where (name, type) order matters but a struct per call site does not pay off.
type Pair[A, B any] struct {
	Fst A
	Snd B
}

func NewPair[A, B any](fst A, snd B) Pair[A, B] {
	return Pair[A, B]{
		Fst: fst,
		Snd: snd,
	}
}
