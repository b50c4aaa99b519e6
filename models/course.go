package models

import (
	"errors"
	"fmt"
	"regexp"
)

// Status is the lifecycle label shown for a course.
type Status string

const (
	StatusInProgress     Status = "in-progress"
	StatusUpcoming       Status = "upcoming"
	StatusEnded          Status = "ended"
	StatusHot            Status = "hot"
	StatusNewlyCertified Status = "newly-certified"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusInProgress, StatusUpcoming, StatusEnded, StatusHot, StatusNewlyCertified}

// statusColors pairs every status with its badge color.
var statusColors = map[Status]string{
	StatusInProgress:     "green",
	StatusUpcoming:       "blue",
	StatusEnded:          "gray",
	StatusHot:            "red",
	StatusNewlyCertified: "purple",
}

// Color returns the badge color paired with s, or "" for an unknown status.
func (s Status) Color() string {
	return statusColors[s]
}

// Rarity is the collectible tier of a course card.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rarities lists the tiers from most to least frequent.
var Rarities = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// Valid reports whether r is one of the known tiers.
func (r Rarity) Valid() bool {
	for _, known := range Rarities {
		if r == known {
			return true
		}
	}
	return false
}

// CourseRecord is the unit of extraction and storage.
// ID is the upsert key; it must be stable across re-crawls of the same source item.
type CourseRecord struct {
	ID          string   `json:"id" bson:"id"`
	Title       string   `json:"title" bson:"title"`
	Provider    string   `json:"provider" bson:"provider"`
	Instructor  string   `json:"instructor" bson:"instructor"`
	Level       int      `json:"level" bson:"level"`
	Heat        int      `json:"heat" bson:"heat"`
	Trend       string   `json:"trend" bson:"trend"`
	Tags        []string `json:"tags" bson:"tags"`
	Description string   `json:"description" bson:"description"`
	Duration    string   `json:"duration" bson:"duration"`
	Status      Status   `json:"status" bson:"status"`
	StatusColor string   `json:"statusColor" bson:"statusColor"`
	ImageSrc    string   `json:"imageSrc" bson:"imageSrc"`
	RarityLevel Rarity   `json:"rarityLevel" bson:"rarityLevel"`
	Language    string   `json:"language,omitempty" bson:"language,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`

	// Synthetic marks records fabricated by the fallback generator.
	Synthetic bool `json:"synthetic" bson:"synthetic"`
	// Enriched marks records whose detail page contributed at least one field.
	Enriched bool `json:"enriched" bson:"enriched"`

	// Placeholders flags the fields a fallback filled in during extraction.
	// It lives only for the run that extracted the record.
	Placeholders Field `json:"-" bson:"-" yaml:"-"`
}

// Field is a bit set naming CourseRecord fields.
type Field uint8

const (
	FieldDuration Field = 1 << iota
	FieldLevel
)

func (f Field) Has(x Field) bool { return f&x != 0 }

var (
	trendPattern    = regexp.MustCompile(`^\+\d+%$`)
	durationPattern = regexp.MustCompile(`^\d+(周| weeks?)$`)
)

// ErrIncompleteRecord is wrapped by Validate for every schema violation.
var ErrIncompleteRecord = errors.New("incomplete course record")

// Validate checks the record is schema-complete. Only complete records may reach a store.
func (c CourseRecord) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if c.Title == "" {
		errs = append(errs, errors.New("title is empty"))
	}
	if c.Level < 1 || c.Level > 5 {
		errs = append(errs, fmt.Errorf("level %d outside [1,5]", c.Level))
	}
	if c.Heat < 0 || c.Heat > 100 {
		errs = append(errs, fmt.Errorf("heat %d outside [0,100]", c.Heat))
	}
	if !trendPattern.MatchString(c.Trend) {
		errs = append(errs, fmt.Errorf("trend %q does not match +N%%", c.Trend))
	}
	if len(c.Tags) < 2 {
		errs = append(errs, fmt.Errorf("tags has %d entries, need at least 2", len(c.Tags)))
	}
	if !durationPattern.MatchString(c.Duration) {
		errs = append(errs, fmt.Errorf("duration %q does not match N周", c.Duration))
	}
	if c.Status.Color() == "" {
		errs = append(errs, fmt.Errorf("unknown status %q", c.Status))
	} else if c.StatusColor != c.Status.Color() {
		errs = append(errs, fmt.Errorf("status color %q does not pair with %q", c.StatusColor, c.Status))
	}
	if c.ImageSrc == "" {
		errs = append(errs, errors.New("imageSrc is empty"))
	}
	if !c.RarityLevel.Valid() {
		errs = append(errs, fmt.Errorf("unknown rarity %q", c.RarityLevel))
	}
	if c.Provider == "" || c.Instructor == "" {
		errs = append(errs, errors.New("provider and instructor are required"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %s: %w", ErrIncompleteRecord, c.ID, errors.Join(errs...))
}
