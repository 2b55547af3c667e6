// Package recipe defines the canonical recipe document shared by import
// results, voice-command input and output, and persisted versions.
package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Note types.
const (
	NoteTip          = "tip"
	NoteSubstitution = "substitution"
	NoteStorage      = "storage"
	NoteVariation    = "variation"
	NoteWarning      = "warning"
)

// Document is the canonical recipe document.
type Document struct {
	ID          string       `json:"id,omitempty"`
	Version     *VersionInfo `json:"version,omitempty"`
	Metadata    Metadata     `json:"metadata"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	Equipment   StringList   `json:"equipment"`
	Notes       []Note       `json:"notes"`
	Nutrition   *Nutrition   `json:"nutrition"`
	Tags        StringList   `json:"tags"`
}

// VersionInfo is the version block embedded in a document.
type VersionInfo struct {
	Number        string  `json:"number"`
	CreatedAt     string  `json:"created_at,omitempty"`
	ParentVersion *string `json:"parent_version"`
	CommitMessage string  `json:"commit_message"`
	Author        string  `json:"author"`
}

// Metadata describes the recipe as a whole.
type Metadata struct {
	Title            string     `json:"title"`
	Language         string     `json:"language,omitempty"`
	TranslatedTitle  string     `json:"translated_title,omitempty"`
	Description      string     `json:"description,omitempty"`
	Source           *Source    `json:"source,omitempty"`
	Cuisine          string     `json:"cuisine,omitempty"`
	Course           string     `json:"course,omitempty"`
	DietaryTags      StringList `json:"dietary_tags,omitempty"`
	PrepTimeMinutes  *Amount    `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes  *Amount    `json:"cook_time_minutes,omitempty"`
	TotalTimeMinutes *Amount    `json:"total_time_minutes,omitempty"`
	Servings         *Amount    `json:"servings,omitempty"`
	Difficulty       string     `json:"difficulty,omitempty"`
	Rating           *Amount    `json:"rating,omitempty"`
}

// Source records where a recipe came from.
type Source struct {
	Type       string `json:"type,omitempty"`
	URL        string `json:"url,omitempty"`
	Author     string `json:"author,omitempty"`
	ImportedAt string `json:"imported_at,omitempty"`
}

type sourceAlias Source

// UnmarshalJSON also accepts a bare string: a URL becomes Source.URL, any
// other text Source.Author.
func (s *Source) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			*s = Source{URL: text}
		} else {
			*s = Source{Author: text}
		}
		return nil
	}
	var aux sourceAlias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Source(aux)
	return nil
}

// Ingredient is one line of the ingredient list. Legacy documents store
// ingredients as bare strings; those decode into Name with Bare set and
// re-encode as strings.
type Ingredient struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Quantity    *Amount `json:"quantity,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Preparation string  `json:"preparation,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	Group       string  `json:"group,omitempty"`
	Optional    bool    `json:"optional,omitempty"`

	Bare bool `json:"-"`
}

type ingredientAlias Ingredient

func (i *Ingredient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Ingredient{Name: s, Bare: true}
		return nil
	}
	var aux struct {
		ingredientAlias
		Amount *Amount `json:"amount,omitempty"`
		Note   string  `json:"note,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = Ingredient(aux.ingredientAlias)
	if i.Quantity.IsZero() && !aux.Amount.IsZero() {
		i.Quantity = aux.Amount
	}
	if i.Notes == "" {
		i.Notes = aux.Note
	}
	return nil
}

func (i Ingredient) MarshalJSON() ([]byte, error) {
	if i.Bare {
		return json.Marshal(i.Name)
	}
	return json.Marshal(ingredientAlias(i))
}

// Step is one instruction.
type Step struct {
	ID              string          `json:"id,omitempty"`
	Order           int             `json:"order,omitempty"`
	Instruction     string          `json:"instruction"`
	DurationMinutes *Amount         `json:"duration_minutes,omitempty"`
	Temperature     *Temperature    `json:"temperature,omitempty"`
	Timer           json.RawMessage `json:"timer,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Media           json.RawMessage `json:"media,omitempty"`

	Bare bool `json:"-"`
}

type stepAlias Step

func (s *Step) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = Step{Instruction: text, Bare: true}
		return nil
	}
	var aux struct {
		stepAlias
		Order *Amount `json:"order,omitempty"`
		Text  string  `json:"text,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Step(aux.stepAlias)
	// Models sometimes quote the order; anything non-numeric is dropped.
	if f, ok := aux.Order.Float(); ok && f > 0 {
		s.Order = int(f)
	}
	if s.Instruction == "" {
		s.Instruction = aux.Text
	}
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	if s.Bare {
		return json.Marshal(s.Instruction)
	}
	return json.Marshal(stepAlias(s))
}

// Temperature is an oven or liquid temperature.
type Temperature struct {
	Value *Amount `json:"value,omitempty"`
	Unit  string  `json:"unit,omitempty"`
}

var temperatureRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:°|º|deg(?:rees)?)?\s*([A-Za-z]*)$`)

type temperatureAlias Temperature

// UnmarshalJSON also accepts a bare number and text such as "350F" or
// "180 °C". Unit spellings are folded to F or C.
func (t *Temperature) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		m := temperatureRe.FindStringSubmatch(text)
		if m == nil {
			*t = Temperature{Value: Text(text)}
			return nil
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			*t = Temperature{Value: Text(text)}
			return nil
		}
		*t = Temperature{Value: Num(v), Unit: temperatureUnit(m[2])}
		return nil
	case len(data) > 0 && data[0] != '{':
		var v Amount
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*t = Temperature{Value: &v}
		return nil
	}
	var aux temperatureAlias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Temperature(aux)
	t.Unit = temperatureUnit(t.Unit)
	return nil
}

func temperatureUnit(u string) string {
	u = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(u), "°º"))
	switch strings.ToLower(u) {
	case "f", "fahrenheit":
		return "F"
	case "c", "celsius", "centigrade":
		return "C"
	}
	return u
}

// StringList is a list of short labels. A bare string decodes as a
// comma-separated list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		out := StringList{}
		for _, part := range strings.Split(text, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Note is a typed free-text note.
type Note struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Nutrition is a per-serving nutrition record.
type Nutrition struct {
	Calories *Amount `json:"calories,omitempty"`
	ProteinG *Amount `json:"protein_g,omitempty"`
	CarbsG   *Amount `json:"carbs_g,omitempty"`
	FatG     *Amount `json:"fat_g,omitempty"`
	FiberG   *Amount `json:"fiber_g,omitempty"`
	SodiumMg *Amount `json:"sodium_mg,omitempty"`
}

// Title returns metadata.title.
func (d *Document) Title() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.Metadata.Title)
}

// Normalize replaces nil collections with empty ones so the encoded shape
// is stable.
func (d *Document) Normalize() {
	if d.Ingredients == nil {
		d.Ingredients = []Ingredient{}
	}
	if d.Steps == nil {
		d.Steps = []Step{}
	}
	if d.Equipment == nil {
		d.Equipment = StringList{}
	}
	if d.Notes == nil {
		d.Notes = []Note{}
	}
	if d.Tags == nil {
		d.Tags = StringList{}
	}
}

// Clone returns a deep copy via a JSON round trip.
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("recipe: clone: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON document.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("recipe: decode document: %w", err)
	}
	d.Normalize()
	return &d, nil
}
