package mappers

import (
	"net/url"
	"strings"

	"course-storefront/internal/domain"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/providers/skillsfuture"
)

const (
	PlaceholderThumbnail = "https://via.placeholder.com/300x160"
	PlaceholderBanner    = "https://via.placeholder.com/1200x300"

	defaultCategory         = "Uncategorized"
	defaultInternalProvider = "Marketplace"
	defaultExternalProvider = "SkillsFuture"
	untitled                = "Untitled course"
)

// FromInternal maps a marketplace course row. Relative image paths are
// resolved against assetBase.
func FromInternal(rec marketplace.CourseRecord, assetBase string) domain.Course {
	thumb := AbsoluteURL(assetBase, rec.TileImageURL)
	return domain.Course{
		InternalID:     rec.CourseID,
		Source:         domain.SourceInternal,
		Title:          FirstNonEmpty(rec.Name, untitled),
		Description:    strings.TrimSpace(rec.Description),
		Category:       FirstNonEmpty(rec.Category, defaultCategory),
		ProviderName:   FirstNonEmpty(rec.TrainingProviderAlias, defaultInternalProvider),
		PublishedDate:  NormalizeDate(rec.CreatedAt),
		Price:          float64(rec.Price),
		TrainingHours:  float64(rec.TotalTrainingHours),
		MaxCapacity:    rec.MaxCapacity,
		ThumbnailURL:   FirstNonEmpty(thumb, PlaceholderThumbnail),
		DetailImageURL: FirstNonEmpty(thumb, PlaceholderBanner),
		Reviews:        []domain.Review{},
	}
}

// FromExternal maps a SkillsFuture directory record. detailBase is the
// course-detail page used when the record carries no URL of its own.
func FromExternal(rec skillsfuture.Course, assetBase, detailBase string) domain.Course {
	ref := rec.Ref()
	thumb := AbsoluteURL(assetBase, rec.TileImageURL)
	banner := AbsoluteURL(assetBase, FirstNonEmpty(rec.DetailImageURL, rec.TileImageURL))

	return domain.Course{
		ExternalRef:    ref,
		Source:         domain.SourceExternal,
		Title:          FirstNonEmpty(rec.Title, untitled),
		Description:    FirstNonEmpty(rec.Objective, rec.Content),
		Category:       FirstNonEmpty(rec.Categories.First(), rec.AreaOfTraining.First(), defaultCategory),
		ProviderName:   FirstNonEmpty(string(rec.TrainingProvider), defaultExternalProvider),
		PublishedDate:  NormalizeDate(FirstNonEmpty(rec.PublishDate, rec.UpdatedDate)),
		Price:          float64(rec.TotalCostOfTrainingPerTrainee),
		TrainingHours:  float64(rec.TotalTrainingDurationHour),
		ThumbnailURL:   FirstNonEmpty(thumb, PlaceholderThumbnail),
		DetailImageURL: FirstNonEmpty(banner, PlaceholderBanner),
		DetailURL:      FirstNonEmpty(AbsoluteURL(assetBase, rec.URL), FallbackDetailURL(detailBase, ref)),
		Reviews:        []domain.Review{},
	}
}

// FallbackDetailURL builds the public course-detail link for a reference
// number.
func FallbackDetailURL(detailBase, ref string) string {
	if strings.TrimSpace(ref) == "" || strings.TrimSpace(detailBase) == "" {
		return ""
	}
	return detailBase + "?courseReferenceNumber=" + url.QueryEscape(ref)
}
