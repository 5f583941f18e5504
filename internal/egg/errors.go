package egg

import "fmt"

// LookupError reports a reference to a pool, vertex, texture or joint the document does not define.
type LookupError struct {
	Kind  string // "vertex pool", "vertex", "texture", "joint"
	Name  string
	Index int // -1 when the lookup is by name only
}

func (e *LookupError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("egg: %s %d not found in %q", e.Kind, e.Index, e.Name)
	}
	return fmt.Sprintf("egg: %s %q not found", e.Kind, e.Name)
}

// StructuralError reports a malformed hierarchy, such as a joint name used twice in one skeleton.
type StructuralError struct {
	Name   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("egg: %s: %s", e.Name, e.Reason)
}

// FormatMismatchError reports a document whose kind does not match the requested mode,
// e.g. an animation file imported as a model.
type FormatMismatchError struct {
	Path string
	Want string // "model" or "animation"
	Got  string
}

func (e *FormatMismatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("egg: %s looks like %s data, not %s", e.Path, e.Got, e.Want)
	}
	return fmt.Sprintf("egg: document looks like %s data, not %s", e.Got, e.Want)
}
