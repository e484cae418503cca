package exitcodes

// Exit codes for target-sweep
// These codes form the operational contract with CI/CD and operators
const (
	Success         = 0 // All targets cleaned, possibly with warnings
	InvalidConfig   = 2 // Configuration file or flags invalid
	SafetyViolation = 3 // Safety validator rejected a target root
	RuntimeError    = 4 // Runtime error outside the deletion itself
	CleanFailed     = 5 // A target aborted on a failed deletion
)
