package recipe

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ladle/internal/apperr"
)

// Check validates d and classifies any failure as a validation error.
func Check(d *Document) error {
	if d == nil {
		return apperr.Validation("recipe document is required")
	}
	if err := d.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrValidation, err, "invalid recipe document")
	}
	return nil
}

// Validate enforces the structural fields every stored document needs.
func (d *Document) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Metadata),
		validation.Field(&d.Ingredients),
		validation.Field(&d.Steps),
		validation.Field(&d.Notes),
	)
}

func (m Metadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.Required),
	)
}

func (i Ingredient) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
	)
}

func (s Step) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Instruction, validation.Required),
		validation.Field(&s.Temperature),
	)
}

func (t Temperature) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Unit, validation.In("F", "C")),
	)
}

func (n Note) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Type, validation.Required,
			validation.In(NoteTip, NoteSubstitution, NoteStorage, NoteVariation, NoteWarning)),
		validation.Field(&n.Content, validation.Required),
	)
}
