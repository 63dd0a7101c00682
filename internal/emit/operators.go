package emit

// Supported binary operator overloads. Ordered slices keep generated
// output deterministic.

type operatorMapping struct {
	Token  string // C++ operator token
	Python string // python dunder name without underscores
}

// binaryReturnOps are value-returning binary operators: the generated
// lambda evaluates `self <op> o` and returns the result.
var binaryReturnOps = []operatorMapping{
	{"==", "eq"},
	{"!=", "ne"},
	{"<", "lt"},
	{">", "gt"},
	{"<=", "le"},
	{">=", "ge"},
	{"+", "add"},
	{"-", "sub"},
	{"*", "mul"},
	{"/", "truediv"},
}

// binaryInPlaceOps mutate self and return it, the in-place dunder
// contract.
var binaryInPlaceOps = []operatorMapping{
	{"+=", "iadd"},
	{"-=", "isub"},
	{"*=", "imul"},
	{"/=", "itruediv"},
}

func lookupOperator(ops []operatorMapping, token string) (operatorMapping, bool) {
	for _, op := range ops {
		if op.Token == token {
			return op, true
		}
	}
	return operatorMapping{}, false
}
