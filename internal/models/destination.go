package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultRating   = 4.5
	DefaultDuration = "5 days"
)

// Destination is a catalog record describing a bookable travel listing.
// JSON keys follow the web client ("_id", camelCase).
type Destination struct {
	ID            string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Title         string    `json:"title" gorm:"type:varchar(200);not null"`
	Description   string    `json:"description" gorm:"type:text;not null"`
	Price         string    `json:"price" gorm:"type:varchar(50);not null"`
	Location      string    `json:"location" gorm:"type:varchar(200);not null"`
	Images        []string  `json:"images" gorm:"serializer:json;type:text"`
	Rating        float64   `json:"rating"`
	Duration      string    `json:"duration" gorm:"type:varchar(50)"`
	Featured      bool      `json:"featured" gorm:"index"`
	Discount      *string   `json:"discount,omitempty" gorm:"type:varchar(50)"`
	OriginalPrice *string   `json:"originalPrice,omitempty" gorm:"type:varchar(50)"`
	CreatedAt     time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ApplyDefaults fills the optional attributes that were left unset.
// Rating is only defaulted when the caller did not supply one; see DestinationInput.
func (d *Destination) ApplyDefaults() {
	if strings.TrimSpace(d.Duration) == "" {
		d.Duration = DefaultDuration
	}
	if d.Images == nil {
		d.Images = []string{}
	}
}

// Validate checks the required attributes of a fully merged record.
func (d *Destination) Validate() error {
	fields := map[string]string{}
	required := []struct {
		name  string
		value string
	}{
		{"title", d.Title},
		{"description", d.Description},
		{"price", d.Price},
		{"location", d.Location},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields[r.name] = "is required"
		}
	}

	seen := make(map[string]struct{}, len(d.Images))
	for _, ref := range d.Images {
		if strings.TrimSpace(ref) == "" {
			fields["images"] = "image references must not be empty"
			break
		}
		if _, dup := seen[ref]; dup {
			fields["images"] = "image " + ref + " is listed more than once"
			break
		}
		seen[ref] = struct{}{}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Clone returns a copy that shares no slices or pointers with d.
func (d Destination) Clone() Destination {
	out := d
	if d.Images != nil {
		out.Images = make([]string, len(d.Images))
		copy(out.Images, d.Images)
	}
	if d.Discount != nil {
		v := *d.Discount
		out.Discount = &v
	}
	if d.OriginalPrice != nil {
		v := *d.OriginalPrice
		out.OriginalPrice = &v
	}
	return out
}

// Rating is a submitted rating. HTML number inputs post their value as a
// string, so both 4.7 and "4.7" decode to the same value.
type Rating float64

func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return NewValidationError("rating", "must be a number")
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValidationError("rating", "must be a number")
		}
		*r = Rating(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return NewValidationError("rating", "must be a number")
	}
	*r = Rating(v)
	return nil
}

// DestinationInput is the admin create payload.
type DestinationInput struct {
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description" validate:"required"`
	Price         string   `json:"price" validate:"required,max=50"`
	Location      string   `json:"location" validate:"required,max=200"`
	Images        []string `json:"images" validate:"omitempty,dive,required"`
	Rating        *Rating  `json:"rating"`
	Duration      string   `json:"duration" validate:"omitempty,max=50"`
	Featured      *bool    `json:"featured"`
	Discount      *string  `json:"discount" validate:"omitempty,max=50"`
	OriginalPrice *string  `json:"originalPrice" validate:"omitempty,max=50"`
}

// ToDestination produces the record to persist, with defaults applied.
func (in DestinationInput) ToDestination() *Destination {
	d := &Destination{
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Price:         strings.TrimSpace(in.Price),
		Location:      strings.TrimSpace(in.Location),
		Images:        append([]string{}, in.Images...),
		Rating:        DefaultRating,
		Duration:      strings.TrimSpace(in.Duration),
		Discount:      in.Discount,
		OriginalPrice: in.OriginalPrice,
	}
	if in.Rating != nil {
		d.Rating = float64(*in.Rating)
	}
	if in.Featured != nil {
		d.Featured = *in.Featured
	}
	d.ApplyDefaults()
	return d
}

// DestinationPatch is the admin update payload. Nil fields are left untouched.
type DestinationPatch struct {
	Title         *string   `json:"title" validate:"omitempty,max=200"`
	Description   *string   `json:"description"`
	Price         *string   `json:"price" validate:"omitempty,max=50"`
	Location      *string   `json:"location" validate:"omitempty,max=200"`
	Images        *[]string `json:"images" validate:"omitempty,dive,required"`
	Rating        *Rating   `json:"rating"`
	Duration      *string   `json:"duration" validate:"omitempty,max=50"`
	Featured      *bool     `json:"featured"`
	Discount      *string   `json:"discount" validate:"omitempty,max=50"`
	OriginalPrice *string   `json:"originalPrice" validate:"omitempty,max=50"`
}

// Apply merges the provided fields into d. It does not validate.
func (p DestinationPatch) Apply(d *Destination) {
	if p.Title != nil {
		d.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		d.Description = strings.TrimSpace(*p.Description)
	}
	if p.Price != nil {
		d.Price = strings.TrimSpace(*p.Price)
	}
	if p.Location != nil {
		d.Location = strings.TrimSpace(*p.Location)
	}
	if p.Images != nil {
		d.Images = append([]string{}, (*p.Images)...)
	}
	if p.Rating != nil {
		d.Rating = float64(*p.Rating)
	}
	if p.Duration != nil {
		d.Duration = strings.TrimSpace(*p.Duration)
	}
	if p.Featured != nil {
		d.Featured = *p.Featured
	}
	if p.Discount != nil {
		v := *p.Discount
		d.Discount = &v
	}
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		d.OriginalPrice = &v
	}
	d.ApplyDefaults()
}
