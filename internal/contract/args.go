package contract

import (
	"fmt"
	"strconv"
)

// ArgKind is the Soroban value type an argument is marshaled as.
type ArgKind int

const (
	KindString ArgKind = iota
	KindAddress
	KindI128
	KindSymbol
	KindU32
)

func (k ArgKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindAddress:
		return "address"
	case KindI128:
		return "i128"
	case KindSymbol:
		return "symbol"
	case KindU32:
		return "u32"
	default:
		return "unknown"
	}
}

// Arg is one positional contract argument.
type Arg struct {
	Kind ArgKind
	Text string
	Int  int64
	U32  uint32
}

func String(s string) Arg  { return Arg{Kind: KindString, Text: s} }
func Address(a string) Arg { return Arg{Kind: KindAddress, Text: a} }
func I128(v int64) Arg     { return Arg{Kind: KindI128, Int: v} }
func Symbol(s string) Arg  { return Arg{Kind: KindSymbol, Text: s} }
func U32(v uint32) Arg     { return Arg{Kind: KindU32, U32: v} }

// Value renders the argument for logs.
func (a Arg) Value() string {
	switch a.Kind {
	case KindI128:
		return strconv.FormatInt(a.Int, 10)
	case KindU32:
		return strconv.FormatUint(uint64(a.U32), 10)
	default:
		return a.Text
	}
}

func (a Arg) String() string {
	return fmt.Sprintf("%s(%s)", a.Kind, a.Value())
}
