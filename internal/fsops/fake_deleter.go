package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls and fails the paths listed in Errors.
// With Delegate set, non-failing calls are passed through.
type FakeDeleter struct {
	Calls    []string
	Errors   map[string]error
	Delegate Deleter

	// FailTimes limits how many calls fail for a path listed in Errors.
	// Paths missing here fail on every call.
	FailTimes map[string]int
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)

	if err, ok := f.Errors[path]; ok {
		remaining, limited := f.FailTimes[path]
		if !limited || remaining > 0 {
			if limited {
				f.FailTimes[path] = remaining - 1
			}
			return err
		}
	}

	if f.Delegate != nil {
		return f.Delegate.Remove(path)
	}
	return nil
}

// Removed returns the paths passed to Remove, in call order
func (f *FakeDeleter) Removed() []string {
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c[len("rm:"):])
	}
	return out
}
