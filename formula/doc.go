// Package formula parses and evaluates the arithmetic expressions attached to
// parameters and parameterized exchanges.
//
// The language is deliberately small: numbers, identifiers, the binary
// operators + - * / % ** (and ^ as an alias of **), unary +/-, comparisons
// (< <= > >= == !=, yielding 1 or 0), the conditional form
// `a if cond else b`, parentheses, and calls to a fixed whitelist of math
// functions (see Functions). There is no attribute access, indexing or
// assignment, so evaluating untrusted input cannot reach anything but the
// symbol table handed to Eval.
//
// Errors carry the byte offset of the offending token:
//
//   - *SyntaxError       (matches ErrSyntax)
//   - *MissingSymbolError (matches ErrMissingSymbol)
//   - ErrUnknownFunction, ErrArity (wrapped with position)
//
// Division by zero yields NaN rather than an error; callers treat NaN as
// "no value" and fall back to base amounts.
package formula
