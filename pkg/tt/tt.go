// Package tt supports table-driven tests with little boilerplate.
//
// A typical use of this package looks like this:
//
//	// Function being tested
//	func Neg(i int) { return -i }
//
//	func TestNeg(t *testing.T) {
//		tt.Test(t, tt.Fn(Neg).Named("Neg"),
//			tt.Args(1).Rets(-1),
//			tt.It("negates negative numbers").Args(-2).Rets(2),
//		)
//	}
//
// Return values are compared with cmp.Diff from github.com/google/go-cmp, and
// failures are reported with the diff.
package tt

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Case represents a test case. It is created by the It or Args function, and
// offers setters that augment and return itself, so that calls can be chained
// like It(...).Args(...).Rets(...).
type Case struct {
	desc         string
	args         []any
	retsMatchers [][]any
}

// It returns a new Case with the given description.
func It(desc string) *Case {
	return &Case{desc: desc}
}

// Args returns a new Case with the given arguments.
func Args(args ...any) *Case {
	return &Case{args: args}
}

// Args modifies the Case to pass the given arguments. It returns the receiver.
func (c *Case) Args(args ...any) *Case {
	c.args = args
	return c
}

// Rets modifies the test case so that it requires the return values to match
// the given values. It returns the receiver. The arguments may implement the
// Matcher interface, in which case its Match method is called with the actual
// return value. Otherwise, cmp.Diff is used to determine matches.
func (c *Case) Rets(matchers ...any) *Case {
	c.retsMatchers = append(c.retsMatchers, matchers)
	return c
}

// FnDescriptor describes a function to test.
type FnDescriptor struct {
	name    string
	body    any
	argsFmt string
	retsFmt string
	opts    []cmp.Option
}

// Fn creates a FnDescriptor for the given function.
func Fn(body any) *FnDescriptor {
	return &FnDescriptor{body: body}
}

// Named sets the name of the function. This is only useful for the function
// being tested to be identifiable in error messages.
func (fn *FnDescriptor) Named(name string) *FnDescriptor {
	fn.name = name
	return fn
}

// ArgsFmt sets the string for formatting arguments in test error messages, and
// returns fn itself.
func (fn *FnDescriptor) ArgsFmt(s string) *FnDescriptor {
	fn.argsFmt = s
	return fn
}

// RetsFmt sets the string for formatting return values in test error messages,
// and returns fn itself.
func (fn *FnDescriptor) RetsFmt(s string) *FnDescriptor {
	fn.retsFmt = s
	return fn
}

// CmpOpts sets options passed to cmp.Diff when comparing return values, and
// returns fn itself.
func (fn *FnDescriptor) CmpOpts(opts ...cmp.Option) *FnDescriptor {
	fn.opts = opts
	return fn
}

// T is the interface for accessing testing.T.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Test tests a function against test cases.
func Test(t T, fn *FnDescriptor, cases ...*Case) {
	t.Helper()
	for _, c := range cases {
		rets := call(fn.body, c.args)
		for _, retsMatcher := range c.retsMatchers {
			if diff, ok := match(retsMatcher, rets, fn.opts); !ok {
				var args string
				if fn.argsFmt == "" {
					args = sprintArgs(c.args...)
				} else {
					args = fmt.Sprintf(fn.argsFmt, c.args...)
				}
				var desc string
				if c.desc != "" {
					desc = c.desc + ": "
				}
				if diff == "" {
					var got, want string
					if fn.retsFmt == "" {
						got, want = sprintRets(rets...), sprintRets(retsMatcher...)
					} else {
						got = fmt.Sprintf(fn.retsFmt, rets...)
						want = fmt.Sprintf(fn.retsFmt, retsMatcher...)
					}
					t.Errorf("%s%s(%s) returns %s, want %s", desc, fn.name, args, got, want)
				} else {
					t.Errorf("%s%s(%s) returns (-want +got):\n%s", desc, fn.name, args, diff)
				}
			}
		}
	}
}

// RetValue is an empty interface used in the Matcher interface.
type RetValue any

// Matcher wraps the Match method.
type Matcher interface {
	// Match reports whether a return value is considered a match. The argument
	// is of type RetValue so that it cannot be implemented accidentally.
	Match(RetValue) bool
}

// Any is a Matcher that matches any value.
var Any Matcher = anyMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(RetValue) bool { return true }

// ErrorWithMessage returns a Matcher that matches errors whose message
// contains the given substring.
func ErrorWithMessage(substr string) Matcher { return errorMatcher{substr} }

type errorMatcher struct{ substr string }

func (m errorMatcher) Match(v RetValue) bool {
	err, ok := v.(error)
	return ok && strings.Contains(err.Error(), m.substr)
}

// Returns a non-empty diff when cmp finds a mismatch; an empty diff with false
// means a Matcher rejected the value.
func match(matchers, actual []any, opts []cmp.Option) (string, bool) {
	for i, matcher := range matchers {
		if m, ok := matcher.(Matcher); ok {
			if !m.Match(actual[i]) {
				return "", false
			}
			continue
		}
		if diff := cmp.Diff(matcher, actual[i], append(opts, cmpopts...)...); diff != "" {
			return diff, false
		}
	}
	return "", true
}

var cmpopts = []cmp.Option{
	cmp.Comparer(func(a, b error) bool {
		if a == nil || b == nil {
			return a == b
		}
		return reflect.TypeOf(a) == reflect.TypeOf(b) && a.Error() == b.Error()
	}),
}

func sprintArgs(args ...any) string {
	return sprintCommaDelimited(args...)
}

func sprintRets(rets ...any) string {
	if len(rets) == 1 {
		return fmt.Sprint(rets[0])
	}
	return "(" + sprintCommaDelimited(rets...) + ")"
}

func sprintCommaDelimited(args ...any) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%#v", arg)
	}
	return b.String()
}

func call(fn any, args []any) []any {
	fnType := reflect.TypeOf(fn)
	argsReflect := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// reflect.ValueOf(nil) returns a zero Value, but this is not what
			// we want. Use the zero value of the parameter type instead.
			var paramType reflect.Type
			if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
				paramType = fnType.In(fnType.NumIn() - 1).Elem()
			} else {
				paramType = fnType.In(i)
			}
			argsReflect[i] = reflect.Zero(paramType)
		} else {
			argsReflect[i] = reflect.ValueOf(arg)
		}
	}
	retsReflect := reflect.ValueOf(fn).Call(argsReflect)
	rets := make([]any, len(retsReflect))
	for i, retReflect := range retsReflect {
		rets[i] = retReflect.Interface()
	}
	return rets
}
