package tool

// DefaultRegistry builds a Registry with every built-in tool
// registered. Registration errors only occur if a tool's own schema is
// malformed, which would be a programming error, so DefaultRegistry
// panics — consistent with the registry being populated once at
// startup before the main loop begins.
func DefaultRegistry(workDir string) *Registry {
	r := NewRegistry()
	must := func(t Tool) {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	must(NewReadTool(workDir))
	must(NewWriteTool(workDir))
	must(NewEditTool(workDir))
	must(NewBashTool(workDir))
	must(NewGlobTool(workDir))
	must(NewGrepTool(workDir))
	must(NewLSTool(workDir))
	must(NewSpawnAgentTool(workDir))
	must(NewReadPlanTool())
	return r
}
