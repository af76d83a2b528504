package pipeline

// detectCycles validates that the topic bindings of the built stages form a
// DAG. The fixed stage order makes a cycle unreachable through normal
// construction, but bindings are data: a profile remap can point a stage's
// input at its own or a downstream stage's output, and that must be caught
// before anything starts.
func detectCycles(stages []StageSpec) error {
	// producer index: topic -> stage name
	producers := make(map[string]string)
	for _, s := range stages {
		for _, out := range s.Outputs {
			producers[out.Topic] = s.Name
		}
	}

	// dependents: producer stage -> consumer stages
	dependents := make(map[string][]string)
	for _, s := range stages {
		for _, in := range s.Inputs {
			if producer, ok := producers[in.Topic]; ok {
				if producer == s.Name {
					return &CycleError{Stage: s.Name}
				}
				dependents[producer] = append(dependents[producer], s.Name)
			}
		}
	}

	// Classic depth-first search with permanent and temporary marks.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if permanent[name] {
			return nil
		}
		if temporary[name] {
			return &CycleError{Stage: name}
		}
		temporary[name] = true
		for _, dep := range dependents[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, name)
		permanent[name] = true
		return nil
	}

	for _, s := range stages {
		if !permanent[s.Name] {
			if err := visit(s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
