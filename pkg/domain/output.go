package domain

// Output is the single result a step produces.
// The zero value means the step selected no output: no sub-tree runs and no
// payload is merged.
type Output struct {
	// Path is the selected output name. Empty with Fired set means "default".
	Path string `json:"path,omitempty"`
	// Args is merged into the running argument bag.
	Args map[string]any `json:"args,omitempty"`
	// Fired reports whether the step selected an output at all.
	Fired bool `json:"fired"`
}

// NoOutput is the result of a step that never signals an output.
func NoOutput() Output {
	return Output{}
}

// Default selects the action's default output with an optional payload.
func Default(args map[string]any) Output {
	return Output{Args: args, Fired: true}
}

// To selects a named output with an optional payload.
func To(path string, args map[string]any) Output {
	return Output{Path: path, Args: args, Fired: true}
}

// Resolve fills in the default output name for Default(...) results.
func (o Output) Resolve(defaultPath string) Output {
	if o.Fired && o.Path == "" {
		o.Path = defaultPath
	}
	return o
}
