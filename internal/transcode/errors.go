package transcode

import "egg-transcoder/internal/egg"

// Fatal error kinds of a pass. Match them with errors.As.
type (
	FormatMismatchError = egg.FormatMismatchError
	LookupError         = egg.LookupError
	StructuralError     = egg.StructuralError
)
