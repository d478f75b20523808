package models

// Option is one selectable value in a form dropdown.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog lists the court stations and document types a filing may reference.
type Catalog struct {
	Courts        []Option `yaml:"courts" json:"courts"`
	DocumentTypes []Option `yaml:"documentTypes" json:"documentTypes"`
}

// HasCourt reports whether value is a known court station.
func (c *Catalog) HasCourt(value string) bool {
	return hasOption(c.Courts, value)
}

// HasDocumentType reports whether value is a known document type.
func (c *Catalog) HasDocumentType(value string) bool {
	return hasOption(c.DocumentTypes, value)
}

func hasOption(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}
