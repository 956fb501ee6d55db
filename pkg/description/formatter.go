package description

// Formatter converts a Description to its textual form.
type Formatter interface {
	Format(d *Description) ([]byte, error)
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(d *Description) ([]byte, error)

// Format implements the Formatter interface.
func (f FormatFunc) Format(d *Description) ([]byte, error) {
	return f(d)
}
