package diag

// Context locates the offending definition: the document it came from and
// the entity (and optionally member) inside it.
type Context struct {
	File   string
	Entity string
	Member string
}

type Note struct {
	Context Context
	Msg     string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Context
	Notes    []Note
}
