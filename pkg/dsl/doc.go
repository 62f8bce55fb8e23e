/*
Package dsl provides helpers for writing signal descriptions, either in Go
with a fluent builder or in YAML.

Go usage:

	desc := dsl.Seq(
		dsl.Do(validate).
			On("valid", dsl.Parallel(dsl.Do(charge), dsl.Ref("audit"))).
			On("invalid"),
		dsl.Do(notify),
	)

YAML usage: a step is either an action name or a mapping with "action" and
"outputs"; a concurrent group is a mapping with "parallel"; a synchronous
chain inside a group is a mapping with "sequence".

	name: checkout
	steps:
	  - action: validate
	    outputs:
	      valid:
	        - parallel:
	            - charge
	            - audit
	      invalid: ~
	  - notify
*/
package dsl
