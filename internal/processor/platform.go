package processor

// processPlatform is a structural stub: the core defines the interface so
// the dispatch loop closes, but invents no platform semantics. The original
// implementation falls off the end of its function with no return value at
// all, which unwinds the whole dispatch loop silently; ok=false here
// reproduces that "break with nothing useful to send" outcome through the
// same ill-formed-tuple path every other subprocessor uses for protocol
// errors.
func processPlatform(state *Utim, t Tuple) (Tuple, bool) {
	return Tuple{}, false
}
