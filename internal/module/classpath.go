package module

// CompileClasspath returns the entries a module compiles against: the outputs
// of its transitive module dependencies followed by the external artifacts of
// the module and of those dependencies. Duplicates keep their first position.
func (s *Set) CompileClasspath(name string) ([]string, error) {
	deps, err := s.Dependencies(name)
	if err != nil {
		return nil, err
	}
	var cp classpath
	for _, d := range deps {
		cp.add(d.OutputDir)
	}
	if err := s.addExternals(&cp, append(deps, s.byName[name])...); err != nil {
		return nil, err
	}
	return cp.entries, nil
}

// TestClasspath returns the entries a module's tests run against: its own
// output, test output and test resources, its compile classpath, then every
// tests_with module with that module's own closure.
func (s *Set) TestClasspath(name string) ([]string, error) {
	m := s.byName[name]
	var cp classpath
	cp.add(m.TestOutputDir)
	cp.add(m.TestResources)
	cp.add(m.OutputDir)

	compile, err := s.CompileClasspath(name)
	if err != nil {
		return nil, err
	}
	cp.add(compile...)

	for _, tw := range m.TestsWith {
		twCompile, err := s.CompileClasspath(tw)
		if err != nil {
			return nil, err
		}
		cp.add(s.byName[tw].OutputDir)
		cp.add(twCompile...)
	}
	return cp.entries, nil
}

func (s *Set) addExternals(cp *classpath, mods ...*Module) error {
	for _, m := range mods {
		ext, err := m.ExternalArtifacts()
		if err != nil {
			return err
		}
		cp.add(ext...)
	}
	return nil
}

type classpath struct {
	entries []string
	seen    map[string]bool
}

func (c *classpath) add(paths ...string) {
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	for _, p := range paths {
		if p == "" || c.seen[p] {
			continue
		}
		c.seen[p] = true
		c.entries = append(c.entries, p)
	}
}
