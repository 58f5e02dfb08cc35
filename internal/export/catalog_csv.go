package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"course-storefront/internal/domain"
)

// Keep header order EXACT; downstream spreadsheets index by column.
var catalogHeader = []string{
	"COURSE_ID",
	"SOURCE",
	"COURSE_TITLE",
	"COURSE_DESCRIPTION",
	"COURSE_URL",
	"DURATION_HOURS",
	"CATEGORY",
	"PROVIDER",
	"FEE_VALUE",
	"FEE_CURRENCY",
	"IMAGE_URL",
	"PUBLISHED_TS",
	"RATING",
	"RATING_COUNT",
}

const feeCurrency = "SGD"

// WriteCatalogCSV writes the unified catalog, one row per course.
func WriteCatalogCSV(w io.Writer, courses []domain.Course) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(catalogHeader); err != nil {
		return err
	}
	for _, c := range courses {
		if err := cw.Write(toCatalogRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCatalogCSVFile writes the CSV to outPath.
func WriteCatalogCSVFile(outPath string, courses []domain.Course) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("export: create csv: %w", err)
	}
	if err := WriteCatalogCSV(f, courses); err != nil {
		f.Close()
		return fmt.Errorf("export: write csv: %w", err)
	}
	return f.Close()
}

func toCatalogRow(c domain.Course) []string {
	duration := ""
	if c.TrainingHours > 0 {
		duration = floatToString(c.TrainingHours)
	}

	rating, count := "", ""
	if sum := c.Rating(); sum.Count > 0 {
		rating = strconv.FormatFloat(sum.Average, 'f', 2, 64)
		count = strconv.Itoa(sum.Count)
	}

	return []string{
		c.Key().ID,                         // COURSE_ID
		string(c.Source),                   // SOURCE
		cleanText(c.Title),                 // COURSE_TITLE
		cleanText(c.Description),           // COURSE_DESCRIPTION
		c.DetailURL,                        // COURSE_URL
		duration,                           // DURATION_HOURS
		c.Category,                         // CATEGORY
		c.ProviderName,                     // PROVIDER
		floatToString(c.Price),             // FEE_VALUE
		feeCurrency,                        // FEE_CURRENCY
		c.ThumbnailURL,                     // IMAGE_URL
		strings.TrimSpace(c.PublishedDate), // PUBLISHED_TS
		rating,                             // RATING
		count,                              // RATING_COUNT
	}
}

func floatToString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cleanText flattens newlines so every course stays on one CSV line.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
