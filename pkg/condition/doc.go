/*
Package condition evaluates rule-sets against the variable store.

A Condition combines Rules with "all" (AND) or "any" (OR) logic. Each Rule
names a variable, an operator of the variable's declared kind and a literal.
Evaluation never fails: an absent variable resolves to nil and the rule is
simply evaluated against nil, and an unsupported operator makes the rule fail
with a reason. Per-rule detail is always returned so a debugger can show why
a branch was taken.
*/
package condition
