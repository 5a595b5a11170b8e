// Package must holds assertions for conditions the caller has already
// guaranteed to hold.
package must

// Be panics with msg when expr is false.
func Be(expr bool, msg string) {
	if !expr {
		panic("assertion failed: " + msg)
	}
}

// NilErr panics when err is non-nil. Reserve it for operations whose inputs
// are known-good constants.
func NilErr(err error) {
	if nil != err {
		panic("expected nil error, got: " + err.Error())
	}
}
