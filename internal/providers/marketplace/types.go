package marketplace

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"course-storefront/internal/domain"
)

// CourseRecord is a course row as returned by getAllCourses and the
// provider endpoints.
type CourseRecord struct {
	CourseID                int64  `json:"course_id"`
	CreatorID               int64  `json:"creator_id,omitempty"`
	Name                    string `json:"name"`
	Description             string `json:"description"`
	Price                   Number `json:"price"`
	MaxCapacity             int    `json:"max_capacity"`
	Category                string `json:"category"`
	Source                  string `json:"source"`
	ExternalReferenceNumber string `json:"external_reference_number,omitempty"`
	TrainingProviderAlias   string `json:"training_provider_alias"`
	TotalTrainingHours      Number `json:"total_training_hours"`
	TotalCost               Number `json:"total_cost"`
	TileImageURL            string `json:"tile_image_url"`
	CreatedAt               string `json:"created_at,omitempty"`
	EnrollmentCount         int    `json:"enrollmentCount,omitempty"`
}

// CourseInput is the body of createCourse and providerUpdateCourse.
type CourseInput struct {
	CreatorID               int64   `json:"creator_id"`
	Name                    string  `json:"name"`
	Description             string  `json:"description"`
	Price                   float64 `json:"price"`
	MaxCapacity             int     `json:"max_capacity"`
	Category                string  `json:"category"`
	Source                  string  `json:"source"`
	ExternalReferenceNumber string  `json:"external_reference_number,omitempty"`
	TrainingProviderAlias   string  `json:"training_provider_alias"`
	TotalTrainingHours      float64 `json:"total_training_hours"`
	TotalCost               float64 `json:"total_cost"`
	TileImageURL            string  `json:"tile_image_url"`
}

type ReviewRecord struct {
	ReviewID                ID     `json:"review_id"`
	UserID                  int64  `json:"user_id"`
	Username                string `json:"username"`
	Rating                  int    `json:"rating"`
	Comment                 string `json:"comment"`
	CreatedAt               string `json:"created_at"`
	CourseID                int64  `json:"course_id,omitempty"`
	ExternalReferenceNumber string `json:"external_reference_number,omitempty"`
}

// ReviewInput is posted to /api/courses/:id/reviews (internal) or
// /api/courses/reviews (external, keyed by ExternalReferenceNumber).
type ReviewInput struct {
	UserID                  int64  `json:"userId"`
	Rating                  int    `json:"rating"`
	Comment                 string `json:"comment"`
	ExternalReferenceNumber string `json:"externalReferenceNumber,omitempty"`
}

type EnrollmentRecord struct {
	EnrollmentID ID     `json:"enrollment_id"`
	CourseID     int64  `json:"course_id"`
	CourseName   string `json:"course_name"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	EnrolledAt   string `json:"enrolled_at"`
}

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type userEnvelope struct {
	User *domain.User `json:"user"`
}

// Number accepts a JSON number or a numeric string (Postgres NUMERIC columns
// arrive as "120.00").
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
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// ID accepts a numeric or string identifier and keeps it as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
