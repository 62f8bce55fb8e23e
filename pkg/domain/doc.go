/*
Package domain contains the core types of the signaltree engine.

It defines descriptions (what to run), compiled trees (how it is addressed)
and run records (what happened). The package is kept free of I/O and
persistence concerns.

# Key Entities

  - Action: a named step function with an optional default output.
  - Sequence / Parallel / Step / Ref: the tagged description model.
  - StaticTree: the immutable compiled template shared by every run.
  - RunNode / BranchRun: per-run records derived from the template.
  - Output: the single result a step returns to pick its continuation.
  - ReplayRecord: a captured async result used to skip work on re-runs.
*/
package domain
