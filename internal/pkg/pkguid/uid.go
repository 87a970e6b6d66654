package pkguid

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates unique, increasing numeric identifiers.
type NumberID interface {
	Generate() int64
}
