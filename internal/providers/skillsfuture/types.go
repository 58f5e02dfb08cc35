package skillsfuture

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Course is one record of the SkillsFuture course directory as proxied by
// the marketplace API. The upstream shape is loose; the flexible types below
// absorb the variants seen in practice.
type Course struct {
	ReferenceNumber       string `json:"referenceNumber"`
	CourseReferenceNumber string `json:"courseReferenceNumber"`

	Title     string `json:"title"`
	Objective string `json:"objective"`
	Content   string `json:"content"`

	Categories       Categories `json:"category"`
	AreaOfTraining   Categories `json:"areaOfTraining"`
	TrainingProvider Text       `json:"trainingProvider"`

	PublishDate string `json:"publishDate"`
	UpdatedDate string `json:"updatedOn"`

	TotalCostOfTrainingPerTrainee Number `json:"totalCostOfTrainingPerTrainee"`
	TotalTrainingDurationHour     Number `json:"totalTrainingDurationHour"`

	TileImageURL   string `json:"tileImageUrl"`
	DetailImageURL string `json:"detailImageUrl"`
	URL            string `json:"url"`
}

// Ref returns the course reference number under either field name.
func (c Course) Ref() string {
	if s := strings.TrimSpace(c.CourseReferenceNumber); s != "" {
		return s
	}
	return strings.TrimSpace(c.ReferenceNumber)
}

type Category struct {
	Title string `json:"title"`
	Name  string `json:"name"`
	Code  string `json:"code"`
}

// Categories accepts:
// - "Information Technology" (string)
// - {title,name,code} (object)
// - ["IT","Design"] (array of strings)
// - [{title,name,code}, ...] (array of objects)
type Categories []Category

func (c *Categories) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*c = nil
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*c = nil
			return nil
		}
		*c = Categories{{Title: s, Name: s}}
		return nil

	case '{':
		var one Category
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*c = Categories{one}
		return nil

	case '[':
		var objs []Category
		if err := json.Unmarshal(b, &objs); err == nil {
			*c = objs
			return nil
		}
		var strs []string
		if err := json.Unmarshal(b, &strs); err != nil {
			return err
		}
		out := make(Categories, 0, len(strs))
		for _, s := range strs {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, Category{Title: s, Name: s})
			}
		}
		*c = out
		return nil
	}

	*c = nil
	return nil
}

// First returns the first non-empty title or name.
func (c Categories) First() string {
	for _, cat := range c {
		if t := strings.TrimSpace(cat.Title); t != "" {
			return t
		}
		if n := strings.TrimSpace(cat.Name); n != "" {
			return n
		}
	}
	return ""
}

// Text accepts a plain string or an object carrying one of the keys
// name, title, description or uen.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*t = ""
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case '{':
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		for _, k := range []string{"name", "title", "description", "uen"} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				*t = Text(s)
				return nil
			}
		}
	}

	*t = ""
	return nil
}

// Number accepts a JSON number or a numeric string ("1,250.50" included).
// Anything unparseable decodes as 0.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		s = strings.TrimPrefix(s, "$")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}
