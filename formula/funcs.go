package formula

import (
	"math"
	"sort"
)

// variadic marks a function without an upper bound on arguments.
const variadic = -1

type function struct {
	minArgs, maxArgs int
	call             func(args []float64) float64
}

func unary(f func(float64) float64) function {
	return function{minArgs: 1, maxArgs: 1, call: func(a []float64) float64 { return f(a[0]) }}
}

// builtins is the whitelist of callable functions.
var builtins = map[string]function{
	"abs":   unary(math.Abs),
	"sqrt":  unary(math.Sqrt),
	"exp":   unary(math.Exp),
	"log10": unary(math.Log10),
	"log2":  unary(math.Log2),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"round": unary(math.RoundToEven),
	"log": {minArgs: 1, maxArgs: 2, call: func(a []float64) float64 {
		if len(a) == 2 {
			return math.Log(a[0]) / math.Log(a[1])
		}
		return math.Log(a[0])
	}},
	"pow": {minArgs: 2, maxArgs: 2, call: func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"min": {minArgs: 1, maxArgs: variadic, call: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			if v < m || math.IsNaN(v) {
				m = v
			}
		}
		return m
	}},
	"max": {minArgs: 1, maxArgs: variadic, call: func(a []float64) float64 {
		m := a[0]
		for _, v := range a[1:] {
			if v > m || math.IsNaN(v) {
				m = v
			}
		}
		return m
	}},
}

// constants are resolved only when the scope does not define the name.
var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Functions returns the sorted names of all callable functions.
func Functions() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

// IsReserved reports whether name cannot be used as a parameter name
// (keywords and function names).
func IsReserved(name string) bool {
	if _, ok := builtins[name]; ok {
		return true
	}
	_, ok := keywords[name]

	return ok
}
