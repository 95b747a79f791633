package machine

import (
	"os"
	"strconv"
)

// Options configures one Execute call. Both fields default to false and
// can be overridden by environment variables the way the teacher resolves
// GOGC in RunProgram: the CLI flag, when explicitly set, always wins.
type Options struct {
	// Debug enables the per-instruction trace described in SPEC_FULL §6.
	Debug bool
	// ForceGC runs a full mark-sweep pass on every allocation instead of
	// only when the heap is full. It never changes observable program
	// output, only performance and diagnostic timing (SPEC_FULL §4.7).
	ForceGC bool
}

// OptionsFromEnvironment reads TLCA_DEBUG and TLCA_FORCE_GC, falling back
// silently to false for either one that is unset or unparseable — there
// is no logger wired to stderr for this, matching the teacher's habit of
// quiet, sane defaults for optional environment overrides.
func OptionsFromEnvironment() Options {
	return Options{
		Debug:   envBool("TLCA_DEBUG"),
		ForceGC: envBool("TLCA_FORCE_GC"),
	}
}

func envBool(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
