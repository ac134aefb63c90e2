package extract

type operatorKey struct {
	name  string
	arity int // number of operands; 0 matches any
}

// operatorPageNames maps operators to readable page name components.
var operatorPageNames = map[operatorKey]string{
	{"operator+", 1}:   "operator-unary_plus",
	{"operator-", 1}:   "operator-negate",
	{"operator*", 1}:   "operator-dereference",
	{"operator&", 1}:   "operator-address_of",
	{"operator~", 1}:   "operator-complement",
	{"operator!", 1}:   "operator-logical_not",
	{"operator++", 1}:  "operator-pre_increment",
	{"operator++", 2}:  "operator-post_increment",
	{"operator--", 1}:  "operator-pre_decrement",
	{"operator--", 2}:  "operator-post_decrement",
	{"operator->", 1}:  "operator-arrow",
	{"operator->*", 2}: "operator-arrow_star",
	{"operator+", 2}:   "operator-plus",
	{"operator-", 2}:   "operator-minus",
	{"operator*", 2}:   "operator-multiplies",
	{"operator/", 2}:   "operator-divides",
	{"operator%", 2}:   "operator-modulus",
	{"operator&", 2}:   "operator-bitwise_and",
	{"operator|", 2}:   "operator-bitwise_or",
	{"operator^", 2}:   "operator-bitwise_xor",
	{"operator<<", 2}:  "operator-shift_left",
	{"operator>>", 2}:  "operator-shift_right",
	{"operator&&", 2}:  "operator-logical_and",
	{"operator||", 2}:  "operator-logical_or",
	{"operator==", 2}:  "operator-equal_to",
	{"operator!=", 2}:  "operator-not_equal_to",
	{"operator<", 2}:   "operator-less",
	{"operator<=", 2}:  "operator-less_equal",
	{"operator>", 2}:   "operator-greater",
	{"operator>=", 2}:  "operator-greater_equal",
	{"operator<=>", 2}: "operator-three_way_compare",
	{"operator=", 2}:   "operator-assign",
	{"operator+=", 2}:  "operator-plus_assign",
	{"operator-=", 2}:  "operator-minus_assign",
	{"operator*=", 2}:  "operator-multiplies_assign",
	{"operator/=", 2}:  "operator-divides_assign",
	{"operator%=", 2}:  "operator-modulus_assign",
	{"operator&=", 2}:  "operator-bitwise_and_assign",
	{"operator|=", 2}:  "operator-bitwise_or_assign",
	{"operator^=", 2}:  "operator-bitwise_xor_assign",
	{"operator<<=", 2}: "operator-shift_left_assign",
	{"operator>>=", 2}: "operator-shift_right_assign",
	{"operator,", 2}:   "operator-comma",
	{"operator()", 0}:  "operator-call",
	{"operator[]", 0}:  "operator-subscript",
}

// OperatorPageName returns the page name component of an operator function
// with the given number of operands, the implicit object included. Call and
// subscript operators match any arity.
func OperatorPageName(name string, arity int) (string, bool) {
	if s, ok := operatorPageNames[operatorKey{name, arity}]; ok {
		return s, true
	}
	s, ok := operatorPageNames[operatorKey{name, 0}]
	return s, ok
}
