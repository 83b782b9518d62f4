package basic

import (
	"math"
	"unicode/utf8"
)

// Builtin identifies one of the fixed built-in functions.
type Builtin int

const (
	BuiltinNone Builtin = iota
	BuiltinABS
	BuiltinSQR
	BuiltinSIN
	BuiltinCOS
	BuiltinTAN
	BuiltinLOG
	BuiltinEXP
	BuiltinINT
	BuiltinRND
	BuiltinLEN
	BuiltinCHR
	BuiltinASC
	BuiltinSTR
	BuiltinVAL
	BuiltinPEEK
)

// builtinSignature is the call contract of a built-in.
type builtinSignature struct {
	name    string
	minArgs int
	maxArgs int
	arg     ValueKind // kind of every argument
	result  ValueKind
}

var builtinSignatures = map[Builtin]builtinSignature{
	BuiltinABS:  {"ABS", 1, 1, NumberKind, NumberKind},
	BuiltinSQR:  {"SQR", 1, 1, NumberKind, NumberKind},
	BuiltinSIN:  {"SIN", 1, 1, NumberKind, NumberKind},
	BuiltinCOS:  {"COS", 1, 1, NumberKind, NumberKind},
	BuiltinTAN:  {"TAN", 1, 1, NumberKind, NumberKind},
	BuiltinLOG:  {"LOG", 1, 1, NumberKind, NumberKind},
	BuiltinEXP:  {"EXP", 1, 1, NumberKind, NumberKind},
	BuiltinINT:  {"INT", 1, 1, NumberKind, NumberKind},
	BuiltinRND:  {"RND", 0, 1, NumberKind, NumberKind},
	BuiltinLEN:  {"LEN", 1, 1, StringKind, NumberKind},
	BuiltinCHR:  {"CHR$", 1, 1, NumberKind, StringKind},
	BuiltinASC:  {"ASC", 1, 1, StringKind, NumberKind},
	BuiltinSTR:  {"STR$", 1, 1, NumberKind, StringKind},
	BuiltinVAL:  {"VAL", 1, 1, StringKind, NumberKind},
	BuiltinPEEK: {"PEEK", 1, 1, NumberKind, NumberKind},
}

var builtinByName = func() map[string]Builtin {
	m := make(map[string]Builtin, len(builtinSignatures))
	for b, sig := range builtinSignatures {
		m[sig.name] = b
	}
	return m
}()

// LookupBuiltin resolves an upper-case function name.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtinByName[name]
	return b, ok
}

func (b Builtin) String() string {
	return builtinSignatures[b].name
}

// check validates arity and argument kinds against the contract.
func (b Builtin) check(args []Value) error {
	sig := builtinSignatures[b]
	if len(args) < sig.minArgs || len(args) > sig.maxArgs {
		if sig.minArgs == sig.maxArgs {
			return newError(KindArgumentCount, "%s EXPECTS %d ARGUMENT(S), GOT %d", sig.name, sig.minArgs, len(args))
		}
		return newError(KindArgumentCount, "%s EXPECTS %d TO %d ARGUMENTS, GOT %d", sig.name, sig.minArgs, sig.maxArgs, len(args))
	}
	for _, arg := range args {
		if arg.Kind() != sig.arg {
			return typeMismatch("%s EXPECTS A %s ARGUMENT", sig.name, sig.arg)
		}
	}
	return nil
}

// call evaluates the built-in. Arguments have already been checked.
func (b Builtin) call(args []Value, host *EvalContext) (Value, error) {
	var x float64
	var s string
	if len(args) > 0 {
		x, s = args[0].Num(), args[0].Text()
	}
	switch b {
	case BuiltinABS:
		return Number(math.Abs(x)), nil
	case BuiltinSQR:
		if x < 0 {
			return Value{}, newError(KindIllegalQuantity, "SQR(%s)", formatNumber(x))
		}
		return Number(math.Sqrt(x)), nil
	case BuiltinSIN:
		return Number(math.Sin(x)), nil
	case BuiltinCOS:
		return Number(math.Cos(x)), nil
	case BuiltinTAN:
		return Number(math.Tan(x)), nil
	case BuiltinLOG:
		if x <= 0 {
			return Value{}, newError(KindIllegalQuantity, "LOG(%s)", formatNumber(x))
		}
		return Number(math.Log(x)), nil
	case BuiltinEXP:
		return Number(math.Exp(x)), nil
	case BuiltinINT:
		return Number(math.Floor(x)), nil
	case BuiltinRND:
		return Number(host.random()), nil
	case BuiltinLEN:
		return Number(float64(utf8.RuneCountInString(s))), nil
	case BuiltinCHR:
		if x < 0 || x > 255 {
			return Value{}, newError(KindIllegalQuantity, "CHR$(%s)", formatNumber(x))
		}
		return Str(string(rune(int(x)))), nil
	case BuiltinASC:
		if s == "" {
			return Value{}, newError(KindIllegalQuantity, "ASC OF EMPTY STRING")
		}
		r, _ := utf8.DecodeRuneInString(s)
		return Number(float64(r)), nil
	case BuiltinSTR:
		return Str(formatNumber(x)), nil
	case BuiltinVAL:
		f, _ := parseNumberPrefix(s)
		return Number(f), nil
	case BuiltinPEEK:
		v, err := host.peek(x)
		if err != nil {
			return Value{}, err
		}
		return Number(float64(v)), nil
	}
	return Value{}, newError(KindUndefinedFunction, "%d", int(b))
}
